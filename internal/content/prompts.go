package content

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/recipe-for-chaos/internal/game"
)

func recipesPrompt(playerCount int, components []string) string {
	return fmt.Sprintf(`You are a creative inventor for a sci-fi trading game.
Generate %d unique, cool-sounding gadget names. For each gadget, assign two
DIFFERENT components from this list: %s.

Return a single, valid JSON object and nothing else. Keys are the gadget
names, values are an array of the two required components.

Example for 2 players:
{
  "Quantum Entangler": ["Microchip", "Casing"],
  "Chrono-Stabilizer": ["FuelCell", "Microchip"]
}

Now generate %d recipes.`, playerCount, strings.Join(components, ", "), playerCount)
}

func priceEventPrompt(basePrices map[string]int, active []game.PriceModifier) string {
	base, _ := json.Marshal(basePrices)
	mods, _ := json.Marshal(active)
	return fmt.Sprintf(`You are a market analyst AI for a trading game. Create one
logically consistent market event that changes the price of one resource.

CONTEXT:
- Base prices: %s
- Active price modifiers from previous turns: %s

RULES:
1. Pick exactly one item from: "Carbon", "Silicon", "Polymer".
2. Pick one integer price delta between -5 and +10 (never 0).
3. Write a short title and a one-sentence description.
4. The description must match the delta's sign: positive deltas need a
   shortage or demand story, negative deltas a surplus or slump story.
5. Return only a single valid JSON object with keys "title", "item",
   "delta", "description".

Example:
{
  "title": "Silicon Shortage",
  "item": "Silicon",
  "delta": 6,
  "description": "A fire at a major plant has created a sudden shortage, driving up Silicon prices."
}

Now generate a new, consistent price change event.`, base, mods)
}

func expirationPrompt(modifierTitle string) string {
	return fmt.Sprintf(`The market event called %q has just ended.
Provide a creative one-sentence narrative reason this condition is over.

Return a single valid JSON object with exactly this structure:
{
  "description": "The reason the event ended."
}`, modifierTitle)
}

func worldEventPrompt(wctx game.WorldEventContext) string {
	state, _ := json.Marshal(wctx)
	return fmt.Sprintf(`You are the Game Master AI for "Recipe for Chaos".
Introduce one unpredictable MAJOR world event. Minor price changes are
handled elsewhere; this is for the big stuff.

Game state context: %s

Return a single valid JSON object with this structure and nothing else:
{
  "title": "A short, catchy event name.",
  "description": "A 1-2 sentence narrative description.",
  "effect": {
    "type": "CRAFTING_MODIFIER" | "MINI_QUEST" | "NO_EFFECT",
    "details": { ... }
  }
}

VALID EFFECT TYPES:
1. CRAFTING_MODIFIER: changes a recipe for this turn only.
   "details": {"component": "Microchip" | "Casing" | "FuelCell",
               "ingredient": "Carbon" | "Silicon" | "Polymer",
               "newAmount": <integer between 0 and 3>}
2. MINI_QUEST: a small objective for a reward.
   "details": {"objective": "A short task description.",
               "rewardCoins": <integer between 5 and 25>}
3. NO_EFFECT: a flavor-text only event.
   "details": {}

Now generate a new MAJOR world event. Return only the JSON object.`, state)
}
