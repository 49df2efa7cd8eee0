package game

import "github.com/google/uuid"

// OfferTrade records a two-party barter offer. Affordability is pre-checked
// for the proposer only; nothing is reserved, so the accept-time re-check in
// ResolveTrade is the real gate.
func (s *Session) OfferTrade(fromID, toID PlayerID, offering, requesting TradePayload) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.broadcastStateLocked()

	from, res := s.actingPlayerLocked(fromID)
	if !res.Success {
		return s.reportLocked(fromID, res)
	}
	to, ok := s.players[toID]
	if !ok || fromID == toID {
		return s.reportLocked(fromID, Result{Message: "Invalid trade target."})
	}
	if offering.Coins < 0 || requesting.Coins < 0 || hasNegative(offering.Items) || hasNegative(requesting.Items) {
		return s.reportLocked(fromID, Result{Message: "Invalid trade request."})
	}
	if !canAfford(from, offering) {
		return s.reportLocked(fromID, Result{Message: "You cannot afford that offer."})
	}
	offer := &TradeOffer{
		ID:         uuid.NewString(),
		FromID:     fromID,
		FromName:   from.Name,
		ToID:       toID,
		Offering:   offering,
		Requesting: requesting,
	}
	s.pendingTrades[offer.ID] = offer
	return s.reportLocked(fromID, fmtResult(true, "Trade offer sent to %s.", to.Name))
}

// ResolveTrade accepts or rejects a pending offer. Unknown trades and
// resolvers other than the named recipient are silent no-ops. On accept,
// both sides are re-validated against current state; the swap is all or
// nothing.
func (s *Session) ResolveTrade(resolverID PlayerID, tradeID string, accept bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.broadcastStateLocked()

	if _, res := s.actingPlayerLocked(resolverID); !res.Success {
		s.reportLocked(resolverID, res)
		return
	}
	trade, ok := s.pendingTrades[tradeID]
	if !ok || trade.ToID != resolverID {
		return
	}
	delete(s.pendingTrades, tradeID)

	from, fromOK := s.players[trade.FromID]
	to, toOK := s.players[trade.ToID]
	if !accept || !fromOK || !toOK {
		s.notifyLocked(trade.FromID, Outbound{Type: "actionResult", Payload: Result{Message: "Trade rejected."}})
		return
	}

	if !canAfford(from, trade.Offering) || !canAfford(to, trade.Requesting) {
		unavailable := Result{Message: "Trade failed. A player lacked resources."}
		s.notifyLocked(trade.FromID, Outbound{Type: "actionResult", Payload: unavailable})
		s.notifyLocked(trade.ToID, Outbound{Type: "actionResult", Payload: unavailable})
		return
	}

	from.Coins += trade.Requesting.Coins - trade.Offering.Coins
	to.Coins += trade.Offering.Coins - trade.Requesting.Coins
	for item, qty := range trade.Offering.Items {
		from.Inventory[item] -= qty
		to.Inventory[item] += qty
	}
	for item, qty := range trade.Requesting.Items {
		to.Inventory[item] -= qty
		from.Inventory[item] += qty
	}

	s.notifyLocked(trade.FromID, Outbound{Type: "actionResult", Payload: fmtResult(true, "Trade with %s successful.", to.Name)})
	s.notifyLocked(trade.ToID, Outbound{Type: "actionResult", Payload: fmtResult(true, "Trade with %s successful.", from.Name)})
}

func canAfford(p *Player, payload TradePayload) bool {
	if p.Coins < payload.Coins {
		return false
	}
	for item, qty := range payload.Items {
		if p.Inventory[item] < qty {
			return false
		}
	}
	return true
}

func hasNegative(items map[string]int) bool {
	for _, qty := range items {
		if qty < 0 {
			return true
		}
	}
	return false
}
