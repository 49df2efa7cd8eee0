package game

import "sort"

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func shuffledStrings(rng Rand, in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// randomAssortment draws count ingredients uniformly over kinds, not over
// quantity: every draw picks one kind at random and increments it.
func randomAssortment(rng Rand, kinds []string, count int) map[string]int {
	assortment := make(map[string]int, len(kinds))
	for _, k := range kinds {
		assortment[k] = 0
	}
	for i := 0; i < count; i++ {
		assortment[kinds[rng.Intn(len(kinds))]]++
	}
	return assortment
}
