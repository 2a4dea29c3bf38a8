package scheduler

import "math/rand"

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithRand sets the random source used to draw pairs.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithSeed seeds a dedicated random source. Zero keeps the default time-based seed.
func WithSeed(seed int64) Option {
	return func(s *Scheduler) {
		if seed != 0 {
			s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // pair selection is not security sensitive
		}
	}
}

// WithMaxRepeatRetries bounds how many times a repeated pair is redrawn before it is
// accepted anyway. Negative values are ignored.
func WithMaxRepeatRetries(n int) Option {
	return func(s *Scheduler) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithRepeatPolicy selects what counts as a repeat of the previous pair.
func WithRepeatPolicy(p RepeatPolicy) Option {
	return func(s *Scheduler) {
		if p == RepeatPair || p == RepeatOverlap {
			s.policy = p
		}
	}
}
