package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/elorank/internal/adapters/mq/queue"
	"github.com/okian/elorank/internal/adapters/mq/worker"
	"github.com/okian/elorank/internal/domain/dedupe"
	"github.com/okian/elorank/internal/domain/model"
	"github.com/okian/elorank/internal/domain/types"
	"github.com/okian/elorank/pkg/logger"
	"github.com/okian/elorank/pkg/metrics"
)

const dispatcherShutdownTimeout = 5 * time.Second

// Service implements the API dependencies on top of a Session. Votes and
// skips are queued and executed by a single dispatcher.
type Service struct {
	mu sync.RWMutex

	session    *Session
	deduper    dedupe.Deduper
	queue      eventqueue.Queue
	dispatcher *worker.Dispatcher

	queueSize  int
	dedupeSize int

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service around session.
func New(session *Session, opts ...Option) *Service {
	s := &Service{
		session:    session,
		queueSize:  64,
		dedupeSize: 10_000,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start starts the session (if needed) and the dispatcher.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	if err := s.session.Start(ctx); err != nil {
		return err
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.dispatcher = worker.NewDispatcher(s.queue, s.session)

	// The dispatcher outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.dispatcher.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop closes the queue and shuts the dispatcher down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatcherShutdownTimeout)
	defer cancel()

	_ = s.queue.Close()
	if err := s.dispatcher.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "dispatcher shutdown", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

func (s *Service) currentDeduper() dedupe.Deduper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deduper
}

// SeenAndRecord atomically checks if a vote id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	d := s.currentDeduper()
	if d == nil {
		return false
	}
	seen := d.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordDuplicateCommand()
	}
	return seen
}

// Unrecord forgets a vote id so the client can retry it.
func (s *Service) Unrecord(ctx context.Context, id string) {
	if d := s.currentDeduper(); d != nil {
		d.Unrecord(ctx, id)
	}
}

// Size returns the number of remembered vote ids.
func (s *Service) Size() int64 {
	if d := s.currentDeduper(); d != nil {
		return d.Size()
	}
	return 0
}

// Submit queues a command and waits for its result. Kind, Winner, VoteID and
// Expect are taken from c. Returns eventqueue.ErrQueueFull when the session is
// saturated.
//
// When ctx ends after the command was queued, the command still runs and
// Submit returns an error wrapping ErrPending. A vote id stays recorded
// until the outcome is known and is released only if the command failed.
func (s *Service) Submit(ctx context.Context, c model.Command) (model.Result, error) {
	s.mu.RLock()
	started, q, d := s.started, s.queue, s.dispatcher
	s.mu.RUnlock()
	if !started {
		return model.Result{}, ErrNotStarted
	}

	c.ID = uuid.NewString()
	c.Reply = make(chan model.Result, 1)
	if err := q.Enqueue(ctx, c); err != nil {
		return model.Result{}, err
	}

	select {
	case res := <-c.Reply:
		return res, nil
	case <-ctx.Done():
		if c.VoteID != "" {
			go s.settle(d, c)
		}
		return model.Result{}, fmt.Errorf("%w: %w", ErrPending, ctx.Err())
	}
}

// settle waits for a command nobody is waiting on and forgets its vote id
// when the vote did not apply.
func (s *Service) settle(d *worker.Dispatcher, c model.Command) {
	ctx := context.Background()
	var res model.Result
	select {
	case res = <-c.Reply:
	case <-d.Done():
		select {
		case res = <-c.Reply:
		default:
			res.Err = eventqueue.ErrQueueClosed
		}
	}
	if res.Err != nil {
		s.Unrecord(ctx, c.VoteID)
		s.logger.Warn(ctx, "abandoned vote failed, id released",
			logger.String("voteID", c.VoteID),
			logger.Error(res.Err))
	}
}

// CurrentPair returns the two items awaiting a vote.
func (s *Service) CurrentPair(ctx context.Context) (model.ItemView, model.ItemView, error) {
	return s.session.CurrentPair(ctx)
}

// TopN returns the top N standings entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	return s.session.Standings(ctx, n)
}

// Rank returns the standings entry of one item.
func (s *Service) Rank(ctx context.Context, id string) (types.Entry, error) {
	return s.session.Rank(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	st := s.session.GetStats(ctx)
	stats := map[string]interface{}{
		"started":    s.started,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
		"items":      st.Items,
		"votes":      st.Votes,
		"skips":      st.Skips,
		"fallbacks":  st.Fallbacks,
		"resumed":    st.Resumed,
		"state":      st.State,
	}

	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["seenVoteIDs"] = s.deduper.Size()
	}

	return stats
}
