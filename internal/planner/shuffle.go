package planner

import "math/rand/v2"

// Shuffler produces a permutation by calling swap. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// RandomShuffler uses math/rand/v2's process-wide source, which is seeded
// from the OS at startup. Runs are not reproducible.
type RandomShuffler struct{}

// Shuffle performs a uniform Fisher-Yates shuffle.
func (RandomShuffler) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

// Shuffle permutes items in place using s. A nil s uses RandomShuffler.
func Shuffle[T any](s Shuffler, items []T) {
	if s == nil {
		s = RandomShuffler{}
	}
	s.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}
