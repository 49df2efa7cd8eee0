package game

import "log"

// Action handlers mutate one player's state plus the shared market. Each
// returns a Result that is also unicast to the actor as actionResult, and a
// broadcast stateUpdate follows every attempt. A session outside
// IN_PROGRESS, or an unknown actor, rejects the action without touching
// state.

func (s *Session) Buy(playerID PlayerID, item string, qty int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.broadcastStateLocked()

	p, res := s.actingPlayerLocked(playerID)
	if !res.Success {
		return s.reportLocked(playerID, res)
	}
	price, known := s.marketPrices[item]
	if !known || qty <= 0 {
		return s.reportLocked(playerID, Result{Message: "Invalid buy request."})
	}
	cost := price * qty
	if cost > p.Coins {
		return s.reportLocked(playerID, Result{Message: "Not enough coins."})
	}
	if s.baseCountLocked(p)+qty > s.cfg.InventoryLimit {
		return s.reportLocked(playerID, Result{Message: "Inventory limit exceeded."})
	}
	p.Coins -= cost
	p.Inventory[item] += qty
	return s.reportLocked(playerID, fmtResult(true, "Bought %d %s.", qty, item))
}

func (s *Session) Sell(playerID PlayerID, item string, qty int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.broadcastStateLocked()

	p, res := s.actingPlayerLocked(playerID)
	if !res.Success {
		return s.reportLocked(playerID, res)
	}
	price, known := s.marketPrices[item]
	if !known || qty <= 0 {
		return s.reportLocked(playerID, Result{Message: "Invalid sell request."})
	}
	if p.Inventory[item] < qty {
		return s.reportLocked(playerID, fmtResult(false, "Not enough %s to sell.", item))
	}
	p.Coins += price * qty
	p.Inventory[item] -= qty
	return s.reportLocked(playerID, fmtResult(true, "Sold %d %s.", qty, item))
}

// Craft consumes a component's full ingredient list atomically: if anything
// is short, nothing is consumed.
func (s *Session) Craft(playerID PlayerID, component string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.broadcastStateLocked()

	p, res := s.actingPlayerLocked(playerID)
	if !res.Success {
		return s.reportLocked(playerID, res)
	}
	recipe, known := s.effectiveRecipeLocked(component)
	if !known {
		return s.reportLocked(playerID, Result{Message: "Invalid craft request."})
	}
	// Sorted order keeps the "first missing ingredient" report stable.
	for _, ingredient := range sortedKeys(recipe) {
		if p.Inventory[ingredient] < recipe[ingredient] {
			return s.reportLocked(playerID, fmtResult(false, "Not enough %s.", ingredient))
		}
	}
	for ingredient, qty := range recipe {
		p.Inventory[ingredient] -= qty
	}
	p.Inventory[component]++
	return s.reportLocked(playerID, fmtResult(true, "Crafted a %s!", component))
}

// Build is the sole victory path: a player holding every component of their
// assigned gadget finishes the game. Anything short is a silent no-op,
// matching the build button's always-enabled UI.
func (s *Session) Build(playerID PlayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, res := s.actingPlayerLocked(playerID)
	if !res.Success {
		s.reportLocked(playerID, res)
		return
	}
	if p.Gadget == "" {
		return
	}
	required, known := s.gadgetRecipes[p.Gadget]
	if !known {
		return
	}
	for _, component := range required {
		if p.Inventory[component] < 1 {
			return
		}
	}
	s.phase = PhaseFinished
	s.winner = p
	s.cancelTimerLocked()
	log.Printf("session %s: %s built the %s", s.ID, p.Name, p.Gadget)
	s.broadcastLocked(Outbound{Type: "gameOver", Payload: map[string]any{
		"winnerName":    p.Name,
		"winningGadget": p.Gadget,
	}})
	s.broadcastStateLocked()
}

func (s *Session) baseCountLocked(p *Player) int {
	total := 0
	for _, item := range BaseIngredients {
		total += p.Inventory[item]
	}
	return total
}
