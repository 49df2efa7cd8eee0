package game

import (
	"context"
	"encoding/json"
)

// Phase is the coarse lifecycle stage of a session.
type Phase string

const (
	PhaseLobby       Phase = "LOBBY"
	PhaseInProgress  Phase = "IN_PROGRESS"
	PhaseCalculating Phase = "CALCULATING_TURN"
	PhaseFinished    Phase = "FINISHED"
)

type PlayerID string

type Player struct {
	ID        PlayerID       `json:"id"`
	Name      string         `json:"name"`
	Coins     int            `json:"coins"`
	Inventory map[string]int `json:"inventory"`
	Gadget    string         `json:"gadget,omitempty"`
	conn      Notifier       // not serialized
}

// PriceModifier is a time-bounded adjustment to one market item's price.
// A modifier becomes eligible for expiry once the turn counter has moved
// past the turn it was applied on.
type PriceModifier struct {
	ID          string `json:"id"`
	Item        string `json:"item"`
	Delta       int    `json:"delta"`
	Title       string `json:"title"`
	TurnApplied int    `json:"turnApplied"`
}

// TradePayload is one side of a barter offer.
type TradePayload struct {
	Coins int            `json:"coins"`
	Items map[string]int `json:"items"`
}

type TradeOffer struct {
	ID         string       `json:"id"`
	FromID     PlayerID     `json:"fromId"`
	FromName   string       `json:"fromName"`
	ToID       PlayerID     `json:"toId"`
	Offering   TradePayload `json:"offering"`
	Requesting TradePayload `json:"requesting"`
}

// NarrativeEvent is flavor text shown to players (world events, cancellation
// notices, the lobby welcome message).
type NarrativeEvent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Result is the outcome of a player action, unicast back to the actor.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Outbound is the envelope for every message pushed to a client.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Notifier delivers outbound events to one connected client. Implementations
// must be safe for concurrent use; the session calls Notify while holding its
// lock.
type Notifier interface {
	Notify(Outbound)
}

// Message is the inbound envelope. The payload stays raw until the type is
// known, then decodes into the matching typed struct.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PriceEvent is a generated market event: one item, one signed delta.
type PriceEvent struct {
	Title       string `json:"title"`
	Item        string `json:"item"`
	Delta       int    `json:"delta"`
	Description string `json:"description"`
}

type WorldEffectType string

const (
	EffectCraftingModifier WorldEffectType = "CRAFTING_MODIFIER"
	EffectMiniQuest        WorldEffectType = "MINI_QUEST"
	EffectNone             WorldEffectType = "NO_EFFECT"
)

// CraftingChange rewrites one ingredient requirement of one component for
// the duration of a single turn.
type CraftingChange struct {
	Component  string `json:"component"`
	Ingredient string `json:"ingredient"`
	NewAmount  int    `json:"newAmount"`
}

type WorldEffect struct {
	Type    WorldEffectType `json:"type"`
	Details CraftingChange  `json:"details"`
}

// WorldEvent is a rarer, higher-impact generated event. Only
// CRAFTING_MODIFIER effects mutate state; everything else is flavor.
type WorldEvent struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Effect      WorldEffect `json:"effect"`
}

// WorldEventContext is what the generator gets to riff on.
type WorldEventContext struct {
	Turn    int    `json:"turn"`
	Hoarded string `json:"hoarded"`
}

// Generator produces narrative content for turn transitions. Implementations
// never return an error: any failure, timeout, or malformed response reports
// ok=false and the engine substitutes deterministic fallback content. Calls
// must respect ctx cancellation.
type Generator interface {
	InitialRecipes(ctx context.Context, playerCount int, components []string) (map[string][]string, bool)
	PriceChangeEvent(ctx context.Context, basePrices map[string]int, active []PriceModifier) (PriceEvent, bool)
	ExpirationReason(ctx context.Context, modifierTitle string) (string, bool)
	WorldEvent(ctx context.Context, wctx WorldEventContext) (WorldEvent, bool)
}

// Rand is the source of gameplay randomness (shuffles, ingredient draws,
// expiry coin flips, event-chance rolls). *math/rand.Rand satisfies it;
// tests inject a seeded source for reproducible transitions.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}
