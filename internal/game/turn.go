package game

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// generatorTimeout bounds every collaborator call. A timeout is handled the
// same way as a malformed response: the fallback path, never a failed
// transition.
const generatorTimeout = 15 * time.Second

// StartGame runs the game-start sequence: validate the player count, fetch
// an initial recipe set from the content generator, assign gadgets and
// starting inventories, then run the first turn transition. A missing or
// insufficient recipe set aborts the start completely and the session drops
// back to LOBBY so the host can retry.
func (s *Session) StartGame(callerID PlayerID) error {
	s.mu.Lock()
	if s.phase != PhaseLobby {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if callerID != s.hostID {
		s.mu.Unlock()
		return ErrNotHost
	}
	playerCount := len(s.players)
	if playerCount < s.cfg.MinPlayers || playerCount > s.cfg.MaxPlayers {
		s.broadcastLocked(Outbound{Type: "sessionError", Payload: map[string]string{
			"message": fmt.Sprintf("Game requires %d-%d players.", s.cfg.MinPlayers, s.cfg.MaxPlayers),
		}})
		s.mu.Unlock()
		return ErrPlayerCount
	}
	s.phase = PhaseCalculating
	components := s.cfg.ComponentNames()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), generatorTimeout)
	recipes, ok := s.gen.InitialRecipes(ctx, playerCount, components)
	cancel()
	if !ok || !validRecipeSet(recipes, playerCount, components) {
		s.mu.Lock()
		s.phase = PhaseLobby
		s.broadcastLocked(Outbound{Type: "sessionError", Payload: map[string]string{
			"message": "The Invention-AI is on strike!",
		}})
		s.broadcastStateLocked()
		s.mu.Unlock()
		log.Printf("session %s: game start aborted, recipe generation failed", s.ID)
		return fmt.Errorf("recipe generation failed")
	}

	s.mu.Lock()
	s.gadgetRecipes = recipes
	// Round-robin over a shuffled recipe list so gadget assignment is not
	// correlated with join order.
	gadgets := shuffledStrings(s.rng, sortedKeys(recipes))
	ids := make([]PlayerID, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		p := s.players[id]
		p.Gadget = gadgets[i%len(gadgets)]
		for item, qty := range randomAssortment(s.rng, BaseIngredients, s.cfg.StartingIngredients) {
			p.Inventory[item] = qty
		}
	}
	s.mu.Unlock()

	log.Printf("session %s: game started with %d players", s.ID, playerCount)
	s.runTurnTransition()
	return nil
}

// EndTurn marks a player ready. When every player is ready the session
// enters CALCULATING_TURN and the asynchronous turn transition begins; any
// action arriving while it runs is rejected by the phase guard rather than
// interleaved.
func (s *Session) EndTurn(playerID PlayerID) {
	s.mu.Lock()
	if _, res := s.actingPlayerLocked(playerID); !res.Success {
		s.reportLocked(playerID, res)
		s.mu.Unlock()
		return
	}
	s.readyPlayers[playerID] = struct{}{}
	allReady := len(s.readyPlayers) == len(s.players) && len(s.players) > 0
	if allReady {
		s.phase = PhaseCalculating
	}
	s.broadcastStateLocked()
	s.mu.Unlock()

	if allReady {
		go s.runTurnTransition()
	}
}

// runTurnTransition drives one turn boundary. The steps are strictly
// ordered; the session lock is held only while mutating, and the
// CALCULATING_TURN phase fences out player actions across the awaited
// collaborator calls. Collaborator failures in any step fall back to
// deterministic content and never abort the transition.
func (s *Session) runTurnTransition() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseCalculating
	s.cancelTimerLocked()
	s.readyPlayers = make(map[PlayerID]struct{})
	s.turnNumber++
	turn := s.turnNumber

	// Undo the previous turn's CRAFTING_MODIFIER effects.
	s.recipeOverlay = make(map[string]map[string]int)

	// Flip a fair coin for every modifier old enough to expire.
	var expired, surviving []PriceModifier
	for _, m := range s.activeModifiers {
		if turn > m.TurnApplied && s.rng.Float64() < 0.5 {
			expired = append(expired, m)
		} else {
			surviving = append(surviving, m)
		}
	}
	s.activeModifiers = surviving
	survivingCopy := append([]PriceModifier(nil), surviving...)
	s.mu.Unlock()

	// Expiration narratives are independent; fetch them concurrently, but
	// all of them before the new price event is requested.
	expirations := make([]string, len(expired))
	var wg sync.WaitGroup
	for i, m := range expired {
		wg.Add(1)
		go func(i int, m PriceModifier) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), generatorTimeout)
			defer cancel()
			reason, ok := s.gen.ExpirationReason(ctx, m.Title)
			if !ok || strings.TrimSpace(reason) == "" {
				reason = fmt.Sprintf("The effects of %q have faded.", m.Title)
			}
			expirations[i] = fmt.Sprintf("%s has ended: %s", m.Title, reason)
		}(i, m)
	}
	wg.Wait()

	// Exactly one new modifier is added every turn. An unusable generator
	// response is replaced, never skipped.
	ctx, cancel := context.WithTimeout(context.Background(), generatorTimeout)
	event, ok := s.gen.PriceChangeEvent(ctx, copyCounts(s.cfg.BaseMarketPrices), survivingCopy)
	cancel()
	if !ok || !s.validPriceEvent(event) {
		delta := 2
		if s.rng.Float64() < 0.5 {
			delta = -2
		}
		event = PriceEvent{
			Title:       "Minor Market Jitters",
			Item:        "Polymer",
			Delta:       delta,
			Description: "Unpredictable market forces cause a slight price shift for Polymer.",
		}
	}
	announcements := []string{fmt.Sprintf("%s: %s", event.Title, event.Description)}

	// Small chance of a major world event, keyed to the most hoarded
	// resource.
	var world *WorldEvent
	if s.rng.Float64() < s.cfg.WorldEventChance {
		wctx := WorldEventContext{Turn: turn, Hoarded: s.hoardedResource()}
		ctx, cancel := context.WithTimeout(context.Background(), generatorTimeout)
		if we, ok := s.gen.WorldEvent(ctx, wctx); ok {
			world = &we
		}
		cancel()
	}

	s.mu.Lock()
	// The session may have been destroyed or emptied while the generator
	// calls were in flight; resuming here would leak the timer goroutine.
	if s.closed || s.phase == PhaseFinished || len(s.players) == 0 {
		s.mu.Unlock()
		return
	}
	s.activeModifiers = append(s.activeModifiers, PriceModifier{
		ID:          uuid.NewString(),
		Item:        event.Item,
		Delta:       event.Delta,
		Title:       event.Title,
		TurnApplied: turn,
	})
	// Unreachable given the step above, but enforced anyway: a turn never
	// completes without at least one active modifier.
	if len(s.activeModifiers) == 0 {
		s.activeModifiers = append(s.activeModifiers, PriceModifier{
			ID:          uuid.NewString(),
			Item:        "Carbon",
			Delta:       2,
			Title:       "Minor Market Fluctuation",
			TurnApplied: turn,
		})
		announcements = append(announcements, "A minor market fluctuation caused Carbon prices to rise slightly.")
	}
	if world != nil {
		s.currentEvent = NarrativeEvent{Title: world.Title, Description: world.Description}
		announcements = append(announcements, fmt.Sprintf("%s: %s", world.Title, world.Description))
		if world.Effect.Type == EffectCraftingModifier {
			s.applyCraftingChangeLocked(world.Effect.Details)
		}
	}
	s.marketPrices = ComputePrices(s.cfg.BaseMarketPrices, s.activeModifiers)
	if len(s.players) < s.cfg.MinPlayers {
		// A disconnect during the transition bypasses RemovePlayer's
		// in-progress cancellation; the under-population rule still applies.
		s.phase = PhaseFinished
		s.currentEvent = NarrativeEvent{
			Title:       "Game Canceled",
			Description: "Not enough players to continue.",
		}
		s.broadcastStateLocked()
		s.mu.Unlock()
		log.Printf("session %s: canceled, below minimum player count", s.ID)
		return
	}
	s.startTimerLocked()
	s.phase = PhaseInProgress

	summary := strings.Join(append(expirations, announcements...), "\n")
	if summary == "" {
		summary = "The market is quiet."
	}
	s.broadcastStateLocked()
	s.broadcastLocked(Outbound{Type: "turnSummary", Payload: map[string]any{
		"turnNumber": turn,
		"event": NarrativeEvent{
			Title:       "Market Update",
			Description: summary,
		},
	}})
	s.mu.Unlock()
	log.Printf("session %s: turn %d ready, %d modifiers active", s.ID, turn, len(survivingCopy)+1)
}

func (s *Session) validPriceEvent(e PriceEvent) bool {
	if e.Item == "" || e.Delta == 0 {
		return false
	}
	_, known := s.cfg.BaseMarketPrices[e.Item]
	return known
}

func (s *Session) applyCraftingChangeLocked(change CraftingChange) {
	if _, known := s.cfg.ComponentRecipes[change.Component]; !known {
		return
	}
	if change.NewAmount < 0 {
		return
	}
	if !contains(BaseIngredients, change.Ingredient) {
		return
	}
	if s.recipeOverlay[change.Component] == nil {
		s.recipeOverlay[change.Component] = make(map[string]int)
	}
	s.recipeOverlay[change.Component][change.Ingredient] = change.NewAmount
}

// hoardedResource finds the base resource with the largest summed quantity
// across all inventories. Ties resolve in the fixed BaseIngredients order.
func (s *Session) hoardedResource() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[string]int, len(BaseIngredients))
	for _, p := range s.players {
		for _, item := range BaseIngredients {
			totals[item] += p.Inventory[item]
		}
	}
	best := BaseIngredients[0]
	for _, item := range BaseIngredients[1:] {
		if totals[item] > totals[best] {
			best = item
		}
	}
	return best
}

func validRecipeSet(recipes map[string][]string, playerCount int, components []string) bool {
	if len(recipes) < playerCount {
		return false
	}
	for _, pair := range recipes {
		if len(pair) != 2 {
			return false
		}
		for _, c := range pair {
			if !contains(components, c) {
				return false
			}
		}
	}
	return true
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
