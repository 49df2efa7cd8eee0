package game

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrWrongPhase  = errors.New("session is not accepting that right now")
	ErrNotHost     = errors.New("only the host can start the game")
	ErrPlayerCount = errors.New("player count out of range")
)

// Session owns one game instance and all of its nested state. Every access
// goes through the session mutex: action handlers, the turn-transition
// goroutine, and timer ticks all serialize on it. Different sessions share
// nothing and run fully in parallel.
type Session struct {
	ID string

	mu  sync.Mutex
	cfg Config
	rng Rand
	gen Generator

	phase           Phase
	hostID          PlayerID
	players         map[PlayerID]*Player
	marketPrices    map[string]int
	turnNumber      int
	activeModifiers []PriceModifier
	pendingTrades   map[string]*TradeOffer
	readyPlayers    map[PlayerID]struct{}
	gadgetRecipes   map[string][]string
	currentEvent    NarrativeEvent
	winner          *Player

	// recipeOverlay holds this turn's CRAFTING_MODIFIER rewrites on top of
	// the immutable cfg.ComponentRecipes baseline. Cleared at each
	// transition instead of re-copying the baseline.
	recipeOverlay map[string]map[string]int

	timer *deductionTimer

	// closed marks a session destroyed by the registry. An in-flight turn
	// transition must not restart the timer or resume play once set.
	closed bool
}

func NewSession(id string, cfg Config, rng Rand, gen Generator) *Session {
	base := make(map[string]int, len(cfg.BaseMarketPrices))
	for item, p := range cfg.BaseMarketPrices {
		base[item] = p
	}
	return &Session{
		ID:            id,
		cfg:           cfg,
		rng:           rng,
		gen:           gen,
		phase:         PhaseLobby,
		players:       make(map[PlayerID]*Player),
		marketPrices:  base,
		pendingTrades: make(map[string]*TradeOffer),
		readyPlayers:  make(map[PlayerID]struct{}),
		gadgetRecipes: make(map[string][]string),
		recipeOverlay: make(map[string]map[string]int),
		currentEvent: NarrativeEvent{
			Title:       "Welcome!",
			Description: "Waiting for players to join.",
		},
	}
}

// AddPlayer registers a new player while the session is still in the lobby.
// The first player added becomes host.
func (s *Session) AddPlayer(name string, conn Notifier) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseLobby {
		return nil, ErrWrongPhase
	}
	p := &Player{
		ID:        PlayerID(uuid.NewString()),
		Name:      name,
		Coins:     s.cfg.StartingCoins,
		Inventory: make(map[string]int),
		conn:      conn,
	}
	for _, item := range BaseIngredients {
		p.Inventory[item] = 0
	}
	for _, component := range s.cfg.ComponentNames() {
		p.Inventory[component] = 0
	}
	s.players[p.ID] = p
	if s.hostID == "" {
		s.hostID = p.ID
	}
	return p, nil
}

// RemovePlayer drops a player (disconnect or leave). If the session falls
// below the minimum while in progress it finishes with a cancellation
// notice. Returns true when the session is empty and should be destroyed.
func (s *Session) RemovePlayer(id PlayerID) (empty bool) {
	s.mu.Lock()
	if _, ok := s.players[id]; !ok {
		empty = len(s.players) == 0
		s.mu.Unlock()
		return empty
	}
	delete(s.players, id)
	delete(s.readyPlayers, id)
	startTransition := false
	if len(s.players) < s.cfg.MinPlayers && s.phase == PhaseInProgress {
		s.phase = PhaseFinished
		s.currentEvent = NarrativeEvent{
			Title:       "Game Canceled",
			Description: "Not enough players to continue.",
		}
		s.cancelTimerLocked()
		log.Printf("session %s: canceled, below minimum player count", s.ID)
	} else if s.phase == PhaseInProgress && len(s.players) > 0 && len(s.readyPlayers) == len(s.players) {
		// The leaver may have been the last holdout.
		s.phase = PhaseCalculating
		startTransition = true
	}
	if len(s.players) == 0 {
		s.cancelTimerLocked()
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()
	s.BroadcastState()
	if startTransition {
		go s.runTurnTransition()
	}
	return false
}

// Close cancels the timer and marks the session destroyed. Called by the
// registry when the session is torn down.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancelTimerLocked()
	s.mu.Unlock()
}

// Phase reports the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// PlayerCount reports the number of connected players.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// actingPlayerLocked guards the common preconditions for mutating actions:
// the session must be mid-turn and the actor known.
func (s *Session) actingPlayerLocked(id PlayerID) (*Player, Result) {
	if s.phase != PhaseInProgress {
		return nil, Result{Success: false, Message: "The game is not accepting actions right now."}
	}
	p, ok := s.players[id]
	if !ok {
		return nil, Result{Success: false, Message: "Unknown player."}
	}
	return p, Result{Success: true}
}

func (s *Session) notifyLocked(id PlayerID, out Outbound) {
	if p, ok := s.players[id]; ok && p.conn != nil {
		p.conn.Notify(out)
	}
}

func (s *Session) broadcastLocked(out Outbound) {
	for _, p := range s.players {
		if p.conn != nil {
			p.conn.Notify(out)
		}
	}
}

func (s *Session) broadcastStateLocked() {
	s.broadcastLocked(Outbound{Type: "stateUpdate", Payload: s.snapshotLocked()})
}

// BroadcastState pushes a sanitized snapshot to every connected player.
func (s *Session) BroadcastState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastStateLocked()
}

// effectiveRecipeLocked merges the per-turn overlay over the baseline recipe
// for one component.
func (s *Session) effectiveRecipeLocked(component string) (map[string]int, bool) {
	base, ok := s.cfg.ComponentRecipes[component]
	if !ok {
		return nil, false
	}
	overlay := s.recipeOverlay[component]
	merged := make(map[string]int, len(base)+len(overlay))
	for ing, qty := range base {
		merged[ing] = qty
	}
	for ing, qty := range overlay {
		merged[ing] = qty
	}
	return merged, true
}

func (s *Session) reportLocked(id PlayerID, r Result) Result {
	s.notifyLocked(id, Outbound{Type: "actionResult", Payload: r})
	return r
}

func fmtResult(success bool, format string, args ...any) Result {
	return Result{Success: success, Message: fmt.Sprintf(format, args...)}
}
