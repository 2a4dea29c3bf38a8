package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/elorank/internal/adapters/persistence"
	"github.com/okian/elorank/internal/adapters/repository"
	"github.com/okian/elorank/internal/adapters/source"
	"github.com/okian/elorank/internal/domain/elo"
	"github.com/okian/elorank/internal/domain/identifier"
	"github.com/okian/elorank/internal/domain/model"
	"github.com/okian/elorank/internal/domain/scheduler"
	"github.com/okian/elorank/internal/domain/types"
	"github.com/okian/elorank/pkg/logger"
	"github.com/okian/elorank/pkg/metrics"
)

// Area is the durable side of a session.
type Area interface {
	HasLedger() (bool, error)
	Load(ctx context.Context) ([]model.Item, error)
	Initialize(ctx context.Context, items []model.Item) error
	Discard(ctx context.Context, items []model.Item) error
	Apply(ctx context.Context, d persistence.Delta) error
	Path(locator string) string
}

// Outcome describes an applied vote.
type Outcome struct {
	Winner model.ItemView
	Loser  model.ItemView
	Gain   float64
}

// Session orchestrates one ranking session: bootstrap or resume, then
// vote/skip cycles. Every exported method is safe to call concurrently, but
// mutations are applied one at a time.
type Session struct {
	mu sync.Mutex

	area     Area
	provider source.Provider
	store    repository.Store
	sched    *scheduler.Scheduler
	rater    elo.Rater

	initialRating float64
	logger        logger.Logger

	current   model.Pair
	started   bool
	closed    bool
	resumed   bool
	votes     int
	skips     int
	fallbacks int
}

// NewSession wires a session over a working area and a source of items.
func NewSession(area Area, provider source.Provider, opts ...SessionOption) *Session {
	s := &Session{
		area:          area,
		provider:      provider,
		initialRating: elo.DefaultInitial,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemStore()
	}
	if s.sched == nil {
		s.sched = scheduler.New()
	}
	if s.rater == nil {
		s.rater = elo.New()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("session")
	}
	return s
}

// Start resumes from the ledger when one exists and bootstraps from the
// source otherwise, then selects the first pair.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.started {
		return nil
	}

	resume, err := s.area.HasLedger()
	if err != nil {
		return fmt.Errorf("check ledger: %w", err)
	}

	var items []model.Item
	if resume {
		items, err = s.area.Load(ctx)
	} else {
		items, err = s.bootstrap(ctx)
	}
	if err != nil {
		return err
	}
	if len(items) < 2 {
		return fmt.Errorf("%w: %d eligible", scheduler.ErrInsufficientItems, len(items))
	}

	for _, it := range items {
		if err := s.store.Insert(ctx, it); err != nil {
			return fmt.Errorf("load item %s: %w", it.ID, err)
		}
	}

	if err := s.advance(ctx); err != nil {
		return err
	}

	s.started = true
	s.resumed = resume
	if resume {
		s.logger.Info(ctx, "session resumed", logger.Int("items", len(items)))
	} else {
		s.logger.Info(ctx, "session bootstrapped", logger.Int("items", len(items)))
	}
	return nil
}

// bootstrap assigns ids in discovery order, copies every item into the
// working area under its initial locator and writes the first ledger.
func (s *Session) bootstrap(ctx context.Context) ([]model.Item, error) {
	refs, err := s.provider.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if len(refs) < 2 {
		return nil, fmt.Errorf("%w: %d eligible", scheduler.ErrInsufficientItems, len(refs))
	}

	gen := identifier.NewGenerator()
	items := make([]model.Item, 0, len(refs))
	for _, ref := range refs {
		it := model.Item{
			ID:        gen.Next(),
			Reference: ref,
			Rating:    s.initialRating,
		}
		it.Locator = persistence.EncodeLocator(it.Rating, it.ID, it.Extension())
		// Listed before copying so a partial copy is discarded too.
		items = append(items, it)
		if err := s.provider.Materialize(ctx, ref, s.area.Path(it.Locator)); err != nil {
			return nil, s.abandon(ctx, items, fmt.Errorf("%w: materialize %s: %w", persistence.ErrPersistence, ref, err))
		}
	}

	if err := s.area.Initialize(ctx, items); err != nil {
		return nil, s.abandon(ctx, items, err)
	}
	return items, nil
}

// abandon removes the artifacts of a failed bootstrap so that a later one
// starts from an empty working area, and returns cause.
func (s *Session) abandon(ctx context.Context, items []model.Item, cause error) error {
	if err := s.area.Discard(ctx, items); err != nil {
		s.logger.Error(ctx, "failed to clean up after bootstrap", logger.Error(err))
		return errors.Join(cause, err)
	}
	return cause
}

// advance asks the scheduler for the next pair. Assumes the lock is held.
func (s *Session) advance(ctx context.Context) error {
	items := s.store.Items(ctx)
	candidates := make([]scheduler.Candidate, len(items))
	for i, it := range items {
		candidates[i] = scheduler.Candidate{ID: it.ID, Matchups: it.Matchups}
	}

	sel, err := s.sched.Next(candidates)
	if err != nil {
		return err
	}
	s.current = sel.Pair
	metrics.RecordPairServed()
	if sel.Fallback {
		s.fallbacks++
		metrics.RecordRepeatFallback()
		s.logger.Debug(ctx, "accepted repeated pair after retries",
			logger.String("left", sel.Pair[0]),
			logger.String("right", sel.Pair[1]),
			logger.Int("attempts", sel.Attempts))
	}
	return nil
}

// CurrentPair returns the two items awaiting a vote.
func (s *Session) CurrentPair(ctx context.Context) (model.ItemView, model.ItemView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPair(ctx)
}

func (s *Session) currentPair(ctx context.Context) (model.ItemView, model.ItemView, error) {
	if !s.started {
		return model.ItemView{}, model.ItemView{}, ErrNotStarted
	}
	if s.current.Empty() {
		return model.ItemView{}, model.ItemView{}, ErrNoPair
	}
	left, err := s.store.Get(ctx, s.current[0])
	if err != nil {
		return model.ItemView{}, model.ItemView{}, err
	}
	right, err := s.store.Get(ctx, s.current[1])
	if err != nil {
		return model.ItemView{}, model.ItemView{}, err
	}
	return left.View(), right.View(), nil
}

// Vote records that the item at winner (0 = left, 1 = right) beat the other.
// Nothing changes in memory unless the working area accepted the update, so
// a failed vote can be retried as is.
func (s *Session) Vote(ctx context.Context, winner int) (Outcome, error) {
	return s.VoteOn(ctx, model.Pair{}, winner)
}

// VoteOn is Vote bound to the pair the voter was shown. It fails with
// ErrStalePair, changing nothing, unless expect is still the current pair in
// the same order. A zero expect votes on whatever pair is current.
func (s *Session) VoteOn(ctx context.Context, expect model.Pair, winner int) (Outcome, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Outcome{}, ErrClosed
	}
	if !s.started {
		return Outcome{}, ErrNotStarted
	}
	if winner != 0 && winner != 1 {
		return Outcome{}, ErrInvalidWinner
	}
	if s.current.Empty() {
		return Outcome{}, ErrNoPair
	}
	if !expect.Empty() && expect != s.current {
		return Outcome{}, fmt.Errorf("%w: voted on %s/%s, current is %s/%s",
			ErrStalePair, expect[0], expect[1], s.current[0], s.current[1])
	}

	w, err := s.store.Get(ctx, s.current[winner])
	if err != nil {
		return Outcome{}, err
	}
	l, err := s.store.Get(ctx, s.current[1-winner])
	if err != nil {
		return Outcome{}, err
	}

	res := s.rater.Update(w.Rating, l.Rating)
	nw, nl := w, l
	nw.Rating, nw.Matchups = res.Winner, w.Matchups+1
	nl.Rating, nl.Matchups = res.Loser, l.Matchups+1
	nw.Locator = persistence.EncodeLocator(nw.Rating, nw.ID, nw.Extension())
	nl.Locator = persistence.EncodeLocator(nl.Rating, nl.ID, nl.Extension())

	all := s.store.Items(ctx)
	for i := range all {
		switch all[i].ID {
		case nw.ID:
			all[i] = nw
		case nl.ID:
			all[i] = nl
		}
	}

	delta := persistence.Delta{
		Changes: []persistence.Change{{Before: w, After: nw}, {Before: l, After: nl}},
		Items:   all,
	}
	if err := s.area.Apply(ctx, delta); err != nil {
		metrics.RecordPersistenceFailure()
		metrics.RecordErrorByComponent("session", "persistence")
		s.logger.Error(ctx, "vote not persisted",
			logger.String("winner", w.ID),
			logger.String("loser", l.ID),
			logger.Error(err))
		return Outcome{}, err
	}
	if err := s.store.Commit(ctx, nw, nl); err != nil {
		return Outcome{}, err
	}

	s.votes++
	metrics.RecordVote()
	s.logger.Info(ctx, "vote recorded",
		logger.String("winner", w.ID),
		logger.String("loser", l.ID),
		logger.Float64("winnerRating", nw.Rating),
		logger.Float64("loserRating", nl.Rating))

	if err := s.advance(ctx); err != nil {
		return Outcome{}, err
	}
	metrics.RecordVoteLatency(float64(time.Since(start).Microseconds()) / 1000)

	return Outcome{Winner: nw.View(), Loser: nl.View(), Gain: res.Delta}, nil
}

// Skip replaces the current pair without touching any rating or count.
func (s *Session) Skip(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !s.started {
		return ErrNotStarted
	}
	skipped := s.current
	if err := s.advance(ctx); err != nil {
		return err
	}
	s.skips++
	metrics.RecordSkip()
	s.logger.Debug(ctx, "pair skipped",
		logger.String("left", skipped[0]),
		logger.String("right", skipped[1]))
	return nil
}

// Handle executes a queued command and replies with the next pair.
func (s *Session) Handle(ctx context.Context, c model.Command) model.Result {
	var err error
	switch c.Kind {
	case model.CommandVote:
		_, err = s.VoteOn(ctx, c.Expect, c.Winner)
	case model.CommandSkip:
		err = s.Skip(ctx)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, c.Kind)
	}
	if err != nil {
		return model.Result{Err: err}
	}
	left, right, err := s.CurrentPair(ctx)
	return model.Result{Left: left, Right: right, Err: err}
}

// Close waits for a vote or skip in progress and refuses any later one, so
// the working area can be released. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.logger.Debug(context.Background(), "session closed", logger.Int("votes", s.votes))
	}
}

// Standings returns the top n items with dense ranks.
func (s *Session) Standings(ctx context.Context, n int) ([]types.Entry, error) {
	return s.store.TopN(ctx, n)
}

// Rank returns the standings entry of one item.
func (s *Session) Rank(ctx context.Context, id string) (types.Entry, error) {
	return s.store.Rank(ctx, id)
}

// Count returns the number of items in the session.
func (s *Session) Count(ctx context.Context) int {
	return s.store.Count(ctx)
}

// Stats is a snapshot of session counters.
type Stats struct {
	Started   bool       `json:"started"`
	Resumed   bool       `json:"resumed"`
	Items     int        `json:"items"`
	Votes     int        `json:"votes"`
	Skips     int        `json:"skips"`
	Fallbacks int        `json:"fallbacks"`
	State     string     `json:"state"`
	Current   model.Pair `json:"current"`
}

// GetStats returns session counters for monitoring.
func (s *Session) GetStats(ctx context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.store.Count(ctx)
	metrics.UpdateItems(count)
	return Stats{
		Started:   s.started,
		Resumed:   s.resumed,
		Items:     count,
		Votes:     s.votes,
		Skips:     s.skips,
		Fallbacks: s.fallbacks,
		State:     s.sched.State().String(),
		Current:   s.current,
	}
}
