package repository

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/elorank/internal/domain/model"
	"github.com/okian/elorank/internal/domain/types"
	"github.com/okian/elorank/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: rating DESC, then id ASC (deterministic).
// "less" means ranks earlier, so in-order traversal produces the
// standings from best to worst. Priorities are random, which keeps the
// tree balanced in expectation regardless of how ratings drift.

type node struct {
	id     string
	rating float64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aRating, aID) should appear before (bRating, bID).
func less(aRating float64, aID string, bRating float64, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, rating float64, prio uint64) *node {
	if n == nil {
		return &node{id: id, rating: rating, prio: prio, size: 1}
	}
	if less(rating, id, n.rating, n.id) {
		n.left = insert(n.left, id, rating, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, rating, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, rating float64) *node {
	if n == nil {
		return nil
	}
	if rating == n.rating && id == n.id {
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, rating)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, rating)
		}
	} else if less(rating, id, n.rating, n.id) {
		n.left = deleteNode(n.left, id, rating)
	} else {
		n.right = deleteNode(n.right, id, rating)
	}
	fix(n)
	return n
}

// walk visits nodes in rank order until visit returns false.
func walk(n *node, visit func(*node) bool) bool {
	if n == nil {
		return true
	}
	if !walk(n.left, visit) {
		return false
	}
	if !visit(n) {
		return false
	}
	return walk(n.right, visit)
}

// MemStore is the in-memory rating store. It is safe for concurrent use.
type MemStore struct {
	mu        sync.RWMutex
	root      *node
	byID      map[string]model.Item
	byLocator map[string]string
	order     []string
	prio      *rand.Rand
}

var _ Store = (*MemStore)(nil)

// NewMemStore constructs an empty store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		byID:      make(map[string]model.Item),
		byLocator: make(map[string]string),
		prio:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // treap balancing
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert implements Store.Insert.
func (s *MemStore) Insert(ctx context.Context, item model.Item) error {
	s.mu.Lock()
	if _, ok := s.byID[item.ID]; ok {
		s.mu.Unlock()
		metrics.RecordErrorByComponent("repository", "duplicate_id")
		return ErrDuplicateID
	}
	if item.Locator != "" {
		if _, ok := s.byLocator[item.Locator]; ok {
			s.mu.Unlock()
			metrics.RecordErrorByComponent("repository", "duplicate_locator")
			return ErrDuplicateLocator
		}
		s.byLocator[item.Locator] = item.ID
	}
	s.byID[item.ID] = item
	s.order = append(s.order, item.ID)
	s.root = insert(s.root, item.ID, item.Rating, s.prio.Uint64())
	count := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateItems(count)
	return nil
}

// Get implements Store.Get.
func (s *MemStore) Get(ctx context.Context, id string) (model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.byID[id]
	if !ok {
		return model.Item{}, ErrNotFound
	}
	return item, nil
}

// ByLocator implements Store.ByLocator.
func (s *MemStore) ByLocator(ctx context.Context, locator string) (model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byLocator[locator]
	if !ok {
		return model.Item{}, ErrNotFound
	}
	return s.byID[id], nil
}

// Commit implements Store.Commit.
func (s *MemStore) Commit(ctx context.Context, items ...model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range items {
		if _, ok := s.byID[it.ID]; !ok {
			return ErrNotFound
		}
		if owner, ok := s.byLocator[it.Locator]; ok && owner != it.ID && !committing(items, owner) {
			return ErrDuplicateLocator
		}
	}

	for _, it := range items {
		old := s.byID[it.ID]
		if s.byLocator[old.Locator] == it.ID {
			delete(s.byLocator, old.Locator)
		}
		if old.Rating != it.Rating {
			s.root = deleteNode(s.root, it.ID, old.Rating)
			s.root = insert(s.root, it.ID, it.Rating, s.prio.Uint64())
		}
	}
	for _, it := range items {
		if it.Locator != "" {
			s.byLocator[it.Locator] = it.ID
		}
		s.byID[it.ID] = it
	}
	return nil
}

// committing reports whether id is among the items being replaced,
// in which case its old locator is about to be released.
func committing(items []model.Item, id string) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}

// Items implements Store.Items.
func (s *MemStore) Items(ctx context.Context) []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// TopN returns the top N entries ordered by rating desc.
func (s *MemStore) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Entry, 0, min(n, len(s.byID)))
	walk(s.root, func(nd *node) bool {
		out = append(out, s.entry(nd.id))
		return len(out) < n
	})

	assignRanksWithTies(out)
	return out, nil
}

// Rank returns the standings entry for id in O(n).
func (s *MemStore) Rank(ctx context.Context, id string) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Entry{}, ErrNotFound
	}

	// Dense rank: one plus the number of distinct ratings above this one.
	rank := 1
	prev := item.Rating
	walk(s.root, func(nd *node) bool {
		if nd.rating <= item.Rating {
			return false
		}
		if nd.rating != prev {
			rank++
			prev = nd.rating
		}
		return true
	})

	e := s.entry(id)
	e.Rank = rank
	return e, nil
}

// Count returns the total number of items.
func (s *MemStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// entry assumes the lock is held.
func (s *MemStore) entry(id string) types.Entry {
	it := s.byID[id]
	return types.Entry{
		ID:        it.ID,
		Reference: it.Reference,
		Rating:    it.Rating,
		Matchups:  it.Matchups,
	}
}

// assignRanksWithTies assigns dense ranks: items with the same rating
// share a rank and the next distinct rating takes the next integer.
func assignRanksWithTies(entries []types.Entry) {
	if len(entries) == 0 {
		return
	}

	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank

		same := 1
		for j := i + 1; j < len(entries) && entries[j].Rating == entries[i].Rating; j++ {
			entries[j].Rank = currentRank
			same++
		}

		currentRank++
		i += same - 1
	}
}
