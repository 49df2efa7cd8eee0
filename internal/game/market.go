package game

// ComputePrices applies each modifier's delta to its item in list order,
// starting from a copy of the base prices, then clamps every price to a
// floor of 1. Addition commutes, so modifier order cannot change the result,
// but iteration stays in list order for reproducibility.
func ComputePrices(basePrices map[string]int, modifiers []PriceModifier) map[string]int {
	prices := make(map[string]int, len(basePrices))
	for item, p := range basePrices {
		prices[item] = p
	}
	for _, m := range modifiers {
		if _, ok := prices[m.Item]; ok {
			prices[m.Item] += m.Delta
		}
	}
	for item, p := range prices {
		if p < 1 {
			prices[item] = 1
		}
	}
	return prices
}
