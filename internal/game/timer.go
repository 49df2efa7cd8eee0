package game

import "time"

// deductionTimer is the per-session coin-deduction ticker. Exactly one may
// run per session; startTimerLocked cancels any predecessor first so a
// restart can never double-charge.
type deductionTimer struct {
	stop chan struct{}
}

func (s *Session) startTimerLocked() {
	s.cancelTimerLocked()
	t := &deductionTimer{stop: make(chan struct{})}
	s.timer = t
	go s.runDeductions(t)
}

func (s *Session) cancelTimerLocked() {
	if s.timer != nil {
		close(s.timer.stop)
		s.timer = nil
	}
}

func (s *Session) runDeductions(t *deductionTimer) {
	ticker := time.NewTicker(s.cfg.DeductionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			// A newer timer or a phase change wins over a tick already in
			// flight.
			if s.timer != t || s.phase != PhaseInProgress {
				s.mu.Unlock()
				return
			}
			changed := false
			for _, p := range s.players {
				if _, ready := s.readyPlayers[p.ID]; ready {
					continue
				}
				if p.Coins == 0 {
					continue
				}
				p.Coins -= s.cfg.DeductionAmount
				if p.Coins < 0 {
					p.Coins = 0
				}
				changed = true
			}
			if changed {
				s.broadcastStateLocked()
			}
			s.mu.Unlock()
		}
	}
}
