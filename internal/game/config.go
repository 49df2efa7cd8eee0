package game

import (
	"os"
	"strconv"
	"time"
)

// BaseIngredients is the fixed priority order for the three raw resources.
// Ties in hoarding totals resolve in this order.
var BaseIngredients = []string{"Carbon", "Silicon", "Polymer"}

// Config carries the economy, gameplay, and timer settings for a session.
// It is captured once at session creation and never mutated; per-turn recipe
// overrides live in a separate overlay on the session.
type Config struct {
	BaseMarketPrices map[string]int
	ComponentRecipes map[string]map[string]int

	InventoryLimit      int
	StartingCoins       int
	StartingIngredients int
	MinPlayers          int
	MaxPlayers          int

	WorldEventChance  float64
	DeductionInterval time.Duration
	DeductionAmount   int
}

func DefaultConfig() Config {
	return Config{
		BaseMarketPrices: map[string]int{
			"Carbon":  10,
			"Silicon": 12,
			"Polymer": 8,
		},
		ComponentRecipes: map[string]map[string]int{
			"Microchip": {"Silicon": 3, "Carbon": 1},
			"Casing":    {"Polymer": 3, "Carbon": 2},
			"FuelCell":  {"Carbon": 3, "Polymer": 2},
		},
		InventoryLimit:      10,
		StartingCoins:       100,
		StartingIngredients: 6,
		MinPlayers:          2,
		MaxPlayers:          6,
		WorldEventChance:    0.25,
		DeductionInterval:   20 * time.Second,
		DeductionAmount:     5,
	}
}

// ConfigFromEnv returns DefaultConfig with any recognized environment
// overrides applied. Unparseable values are ignored.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v, ok := envInt("GAME_MIN_PLAYERS"); ok {
		cfg.MinPlayers = v
	}
	if v, ok := envInt("GAME_MAX_PLAYERS"); ok {
		cfg.MaxPlayers = v
	}
	if v, ok := envInt("GAME_INVENTORY_LIMIT"); ok {
		cfg.InventoryLimit = v
	}
	if v, ok := envInt("GAME_STARTING_COINS"); ok {
		cfg.StartingCoins = v
	}
	if v, ok := envInt("GAME_STARTING_INGREDIENTS"); ok {
		cfg.StartingIngredients = v
	}
	if v, ok := envInt("GAME_DEDUCTION_AMOUNT"); ok {
		cfg.DeductionAmount = v
	}
	if v, ok := envInt("GAME_DEDUCTION_INTERVAL_SECONDS"); ok && v > 0 {
		cfg.DeductionInterval = time.Duration(v) * time.Second
	}
	if raw := os.Getenv("GAME_WORLD_EVENT_CHANCE"); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f >= 0 && f <= 1 {
			cfg.WorldEventChance = f
		}
	}
	return cfg
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ComponentNames lists the craftable complex components in a stable order.
func (c Config) ComponentNames() []string {
	return sortedKeys(c.ComponentRecipes)
}
