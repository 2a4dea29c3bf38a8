package repository

import "math/rand"

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithSeed fixes the seed of the treap priority source. Zero keeps the time-based seed.
func WithSeed(seed int64) Option {
	return func(s *MemStore) {
		if seed != 0 {
			s.prio = rand.New(rand.NewSource(seed)) //nolint:gosec // treap balancing, not security
		}
	}
}
