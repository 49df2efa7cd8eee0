package game

// Snapshot is the sanitized session view pushed to every client. It carries
// the full game state plus the static constants and the slice of config the
// presentation layer needs. Collaborator credentials and the raw recipe
// overlay never appear; overrides are already folded into
// Constants.ComplexComponents and the current prices.
type Snapshot struct {
	ID                   string                 `json:"id"`
	Phase                Phase                  `json:"gamePhase"`
	HostID               PlayerID               `json:"hostId"`
	Players              map[PlayerID]*Player   `json:"players"`
	MarketPrices         map[string]int         `json:"marketPrices"`
	TurnNumber           int                    `json:"turnNumber"`
	ActivePriceModifiers []PriceModifier        `json:"activePriceModifiers"`
	PendingTrades        map[string]*TradeOffer `json:"pendingTrades"`
	ReadyPlayers         []PlayerID             `json:"readyPlayers"`
	GadgetRecipes        map[string][]string    `json:"gadgetRecipes"`
	CurrentEvent         NarrativeEvent         `json:"currentEvent"`
	Winner               *Player                `json:"winner,omitempty"`
	Constants            SnapshotConstants      `json:"constants"`
	Config               SnapshotConfig         `json:"config"`
}

type SnapshotConstants struct {
	BaseIngredients          []string                  `json:"baseIngredients"`
	ComplexComponents        map[string]map[string]int `json:"complexComponents"`
	InventoryLimit           int                       `json:"inventoryLimit"`
	StartingCoins            int                       `json:"startingCoins"`
	StartingIngredientsCount int                       `json:"startingIngredientsCount"`
}

type SnapshotConfig struct {
	TurnTimer        SnapshotTimer  `json:"turnTimer"`
	BaseMarketPrices map[string]int `json:"baseMarketPrices"`
}

type SnapshotTimer struct {
	DeductionIntervalSeconds int `json:"deductionIntervalSeconds"`
	DeductionAmount          int `json:"deductionAmount"`
}

// snapshotLocked deep-copies everything the clients see. Marshaling happens
// after the session lock is released, so no live map may leak out.
func (s *Session) snapshotLocked() Snapshot {
	players := make(map[PlayerID]*Player, len(s.players))
	for id, p := range s.players {
		players[id] = copyPlayer(p)
	}
	trades := make(map[string]*TradeOffer, len(s.pendingTrades))
	for id, t := range s.pendingTrades {
		c := *t
		c.Offering.Items = copyCounts(t.Offering.Items)
		c.Requesting.Items = copyCounts(t.Requesting.Items)
		trades[id] = &c
	}
	ready := make([]PlayerID, 0, len(s.readyPlayers))
	for id := range s.readyPlayers {
		ready = append(ready, id)
	}
	recipes := make(map[string][]string, len(s.gadgetRecipes))
	for gadget, pair := range s.gadgetRecipes {
		recipes[gadget] = append([]string(nil), pair...)
	}
	components := make(map[string]map[string]int, len(s.cfg.ComponentRecipes))
	for name := range s.cfg.ComponentRecipes {
		merged, _ := s.effectiveRecipeLocked(name)
		components[name] = merged
	}
	var winner *Player
	if s.winner != nil {
		winner = copyPlayer(s.winner)
	}
	return Snapshot{
		ID:                   s.ID,
		Phase:                s.phase,
		HostID:               s.hostID,
		Players:              players,
		MarketPrices:         copyCounts(s.marketPrices),
		TurnNumber:           s.turnNumber,
		ActivePriceModifiers: append([]PriceModifier(nil), s.activeModifiers...),
		PendingTrades:        trades,
		ReadyPlayers:         ready,
		GadgetRecipes:        recipes,
		CurrentEvent:         s.currentEvent,
		Winner:               winner,
		Constants: SnapshotConstants{
			BaseIngredients:          append([]string(nil), BaseIngredients...),
			ComplexComponents:        components,
			InventoryLimit:           s.cfg.InventoryLimit,
			StartingCoins:            s.cfg.StartingCoins,
			StartingIngredientsCount: s.cfg.StartingIngredients,
		},
		Config: SnapshotConfig{
			TurnTimer: SnapshotTimer{
				DeductionIntervalSeconds: int(s.cfg.DeductionInterval.Seconds()),
				DeductionAmount:          s.cfg.DeductionAmount,
			},
			BaseMarketPrices: copyCounts(s.cfg.BaseMarketPrices),
		},
	}
}

// Snapshot returns the sanitized session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func copyPlayer(p *Player) *Player {
	return &Player{
		ID:        p.ID,
		Name:      p.Name,
		Coins:     p.Coins,
		Inventory: copyCounts(p.Inventory),
		Gadget:    p.Gadget,
	}
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
