// Package scheduler selects the next pair of items to compare.
//
// Selection favours the least-compared items: the candidate pool is the tier of
// items sharing the minimal matchup count, widened tier by tier until it holds at
// least two items. Two distinct items are then drawn uniformly from the pool. A draw
// that repeats the previous pair is redrawn a bounded number of times and then
// accepted, so sessions with two or three items keep making progress.
package scheduler

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/okian/elorank/internal/domain/model"
)

// Default scheduling configuration constants.
const (
	DefaultMaxRepeatRetries = 3
)

// RepeatPolicy decides when a drawn pair counts as a repeat of the previous one.
type RepeatPolicy string

// Supported repeat policies.
const (
	// RepeatPair rejects a draw equal to the previous pair as a set.
	RepeatPair RepeatPolicy = "pair"
	// RepeatOverlap rejects a draw sharing any item with the previous pair.
	RepeatOverlap RepeatPolicy = "overlap"
)

// State is the scheduler's position in its lifecycle.
type State int

// Scheduler states. There is no terminal state.
const (
	StateIdle State = iota
	StatePairSelected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePairSelected:
		return "pair_selected"
	default:
		return "unknown"
	}
}

// Candidate is the scheduling view of an item.
type Candidate struct {
	ID       string
	Matchups int
}

// Selection describes an accepted pair.
type Selection struct {
	Pair     model.Pair
	Pool     int  // size of the candidate pool the pair was drawn from
	Attempts int  // number of draws made, at least 1
	Fallback bool // the pair repeats the previous one after exhausting retries
}

// Scheduler implements the fairness-driven pair selection state machine.
type Scheduler struct {
	rng        *rand.Rand
	maxRetries int
	policy     RepeatPolicy

	state    State
	previous model.Pair
}

// New creates a Scheduler with configuration options.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // pair selection is not security sensitive
		maxRetries: DefaultMaxRepeatRetries,
		policy:     RepeatPair,
		state:      StateIdle,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return s.state
}

// Previous returns the most recently accepted pair, or the zero Pair.
func (s *Scheduler) Previous() model.Pair {
	return s.previous
}

// Next selects and accepts the next pair from items. It is used both after a vote
// and for a manual skip; neither path mutates matchup counts here.
func (s *Scheduler) Next(items []Candidate) (Selection, error) {
	pool, err := Pool(items)
	if err != nil {
		return Selection{}, err
	}

	var pair model.Pair
	attempt := 0
	for ; ; attempt++ {
		pair = s.draw(pool)
		if !s.repeats(pair) {
			break
		}
		if attempt >= s.maxRetries {
			s.accept(pair)
			return Selection{Pair: pair, Pool: len(pool), Attempts: attempt + 1, Fallback: true}, nil
		}
	}

	s.accept(pair)
	return Selection{Pair: pair, Pool: len(pool), Attempts: attempt + 1}, nil
}

func (s *Scheduler) accept(p model.Pair) {
	s.previous = p
	s.state = StatePairSelected
}

func (s *Scheduler) repeats(p model.Pair) bool {
	if s.previous.Empty() {
		return false
	}
	if s.policy == RepeatOverlap {
		return p.Overlaps(s.previous)
	}
	return p.Equal(s.previous)
}

// draw picks two distinct pool members uniformly at random.
func (s *Scheduler) draw(pool []string) model.Pair {
	i := s.rng.Intn(len(pool))
	j := s.rng.Intn(len(pool) - 1)
	if j >= i {
		j++
	}
	return model.Pair{pool[i], pool[j]}
}

// Pool returns the ids eligible for the next draw: the minimal matchup tier,
// widened with each next-higher tier until it holds at least two ids. Input order is
// preserved within each tier.
func Pool(items []Candidate) ([]string, error) {
	if len(items) < 2 {
		return nil, fmt.Errorf("%w: have %d", ErrInsufficientItems, len(items))
	}

	byCount := make(map[int][]string)
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, it.ID)
		}
		seen[it.ID] = struct{}{}
		byCount[it.Matchups] = append(byCount[it.Matchups], it.ID)
	}

	tiers := make([]int, 0, len(byCount))
	for c := range byCount {
		tiers = append(tiers, c)
	}
	sort.Ints(tiers)

	pool := make([]string, 0, len(items))
	for _, c := range tiers {
		pool = append(pool, byCount[c]...)
		if len(pool) >= 2 {
			break
		}
	}
	return pool, nil
}
