package game

import (
	"context"
	"sync"
	"testing"
	"time"
)

// recorder captures everything a session pushes to one client.
type recorder struct {
	mu     sync.Mutex
	events []Outbound
}

func (r *recorder) Notify(out Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, out)
}

func (r *recorder) byType(t string) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Outbound
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) lastResult(t *testing.T) Result {
	t.Helper()
	results := r.byType("actionResult")
	if len(results) == 0 {
		t.Fatal("no actionResult received")
	}
	res, ok := results[len(results)-1].Payload.(Result)
	if !ok {
		t.Fatalf("actionResult payload has type %T", results[len(results)-1].Payload)
	}
	return res
}

// scriptedRand pops queued Float64 values and returns fixed defaults
// afterwards: 0.99 (no expiry, no event roll) and Intn 0. Shuffle is the
// identity permutation.
type scriptedRand struct {
	floats []float64
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) > 0 {
		v := r.floats[0]
		r.floats = r.floats[1:]
		return v
	}
	return 0.99
}

func (r *scriptedRand) Intn(n int) int { return 0 }

func (r *scriptedRand) Shuffle(n int, swap func(i, j int)) {}

// fakeGenerator scripts collaborator responses per call.
type fakeGenerator struct {
	recipes    map[string][]string
	recipesOK  bool
	priceEvent PriceEvent
	priceOK    bool
	reason     string
	reasonOK   bool
	world      WorldEvent
	worldOK    bool

	mu         sync.Mutex
	priceCalls int
	worldCalls int
}

func (g *fakeGenerator) InitialRecipes(context.Context, int, []string) (map[string][]string, bool) {
	return g.recipes, g.recipesOK
}

func (g *fakeGenerator) PriceChangeEvent(context.Context, map[string]int, []PriceModifier) (PriceEvent, bool) {
	g.mu.Lock()
	g.priceCalls++
	g.mu.Unlock()
	return g.priceEvent, g.priceOK
}

func (g *fakeGenerator) ExpirationReason(context.Context, string) (string, bool) {
	return g.reason, g.reasonOK
}

func (g *fakeGenerator) WorldEvent(context.Context, WorldEventContext) (WorldEvent, bool) {
	g.mu.Lock()
	g.worldCalls++
	g.mu.Unlock()
	return g.world, g.worldOK
}

func validGenerator() *fakeGenerator {
	return &fakeGenerator{
		recipes: map[string][]string{
			"Quantum Entangler": {"Microchip", "Casing"},
			"Gravity Anchor":    {"FuelCell", "Casing"},
		},
		recipesOK: true,
		priceEvent: PriceEvent{
			Title:       "Carbon Rush",
			Item:        "Carbon",
			Delta:       3,
			Description: "Prospectors flood the Carbon market.",
		},
		priceOK: true,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DeductionInterval = time.Hour // keep timers inert unless a test wants them
	return cfg
}

func newTestSession(cfg Config, rng Rand, gen Generator) *Session {
	if rng == nil {
		rng = &scriptedRand{}
	}
	if gen == nil {
		gen = validGenerator()
	}
	return NewSession("TEST42", cfg, rng, gen)
}

// addPlayers joins n players and returns them with their recorders.
func addPlayers(t *testing.T, s *Session, names ...string) ([]*Player, []*recorder) {
	t.Helper()
	players := make([]*Player, 0, len(names))
	recs := make([]*recorder, 0, len(names))
	for _, name := range names {
		rec := &recorder{}
		p, err := s.AddPlayer(name, rec)
		if err != nil {
			t.Fatalf("AddPlayer(%s): %v", name, err)
		}
		players = append(players, p)
		recs = append(recs, rec)
	}
	return players, recs
}

// startInProgress shortcuts a session straight into IN_PROGRESS without the
// content-generator start sequence.
func startInProgress(s *Session) {
	s.mu.Lock()
	s.phase = PhaseInProgress
	s.mu.Unlock()
}

func waitForPhase(t *testing.T, s *Session, want Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Phase() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached phase %s (now %s)", want, s.Phase())
}
