package sampling

import (
	"math/rand"
	"sort"
)

// newRNG builds the deterministic generator every selection routine
// draws from. Reproducibility under a fixed seed is an audit
// requirement, not a convenience.
func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// simpleRandom draws size distinct row indexes uniformly, returned in
// ascending row order so plan output is stable.
func simpleRandom(rng *rand.Rand, populationSize, size int) []int {
	if size >= populationSize {
		all := make([]int, populationSize)
		for i := range all {
			all[i] = i
		}
		return all
	}
	picked := rng.Perm(populationSize)[:size]
	sort.Ints(picked)
	return picked
}

// systematic selects every k-th row from a random start, the classic
// fixed-interval technique.
func systematic(rng *rand.Rand, populationSize, size int) []int {
	if size >= populationSize {
		return simpleRandom(rng, populationSize, size)
	}
	interval := float64(populationSize) / float64(size)
	start := rng.Float64() * interval

	picked := make([]int, 0, size)
	for i := 0; i < size; i++ {
		idx := int(start + float64(i)*interval)
		if idx >= populationSize {
			idx = populationSize - 1
		}
		if len(picked) > 0 && picked[len(picked)-1] == idx {
			// Interval rounding collided; advance to keep ids unique.
			idx++
			if idx >= populationSize {
				break
			}
		}
		picked = append(picked, idx)
	}
	return picked
}

// selectRows dispatches on the configured selection technique
func selectRows(rng *rand.Rand, technique string, populationSize, size int) []int {
	if technique == SelectionSystematic {
		return systematic(rng, populationSize, size)
	}
	return simpleRandom(rng, populationSize, size)
}
