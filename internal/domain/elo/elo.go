// Package elo implements the logistic Elo update for a single pairwise outcome.
package elo

import (
	"math"
)

// Default rating configuration constants.
const (
	DefaultK       = 32.0
	DefaultInitial = 1000.0
	scale          = 400.0
)

// Result holds both updated ratings and the points that moved between them.
type Result struct {
	Winner float64
	Loser  float64
	Delta  float64
}

// Rater computes updated ratings for a winner/loser pair.
type Rater interface {
	Update(winner, loser float64) Result
}

// Updater is the logistic Elo Rater with a fixed K factor.
type Updater struct {
	k float64
}

// New creates an Updater with configuration options.
func New(opts ...Option) *Updater {
	u := &Updater{k: DefaultK}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// K returns the configured K factor.
func (u *Updater) K() float64 {
	return u.k
}

// Expected returns the expected score of a player rated a against one rated b.
func Expected(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/scale))
}

// Update applies one outcome. The winner gains exactly what the loser gives up:
// the loser's expectation is computed once and the same delta is added and subtracted.
// Ratings are not clamped.
func (u *Updater) Update(winner, loser float64) Result {
	el := Expected(loser, winner)
	delta := u.k * el
	return Result{
		Winner: winner + delta,
		Loser:  loser - delta,
		Delta:  delta,
	}
}
