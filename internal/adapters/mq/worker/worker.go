// Package worker drains the command queue into a session, one command at a time.
//
// There is exactly one dispatcher per session: each vote or skip is fully
// processed (rating update, persistence, next pair) before the next command
// is read, which is what keeps the session single-writer.
package worker

import (
	"context"
	"fmt"

	"github.com/okian/elorank/internal/domain/model"
	"github.com/okian/elorank/pkg/logger"
)

// Command abstracts what the dispatcher reads off the queue.
type Command = model.Command

// Handler executes one command and returns its outcome.
type Handler interface {
	Handle(ctx context.Context, c Command) model.Result
}

// Queue defines how the dispatcher receives commands.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Command
}

// Dispatcher processes commands serially.
type Dispatcher struct {
	queue   Queue
	handler Handler
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(queue Queue, handler Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    queue,
		handler:  handler,
		name:     "dispatcher",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("dispatcher"),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.name != "dispatcher" {
		d.logger = d.logger.Named(d.name)
	}

	return d
}

// Run processes commands until ctx is canceled, Shutdown is called or the
// queue is closed and drained.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	commands := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case c, ok := <-commands:
			if !ok {
				return
			}
			d.dispatch(ctx, c)
		}
	}
}

// dispatch runs one command and delivers its result. Reply channels must be
// buffered; a reply nobody waits for is dropped rather than stalling the session.
func (d *Dispatcher) dispatch(ctx context.Context, c Command) {
	res := d.handler.Handle(ctx, c)
	if res.Err != nil {
		d.logger.Debug(ctx, "command failed",
			logger.String("id", c.ID),
			logger.String("kind", string(c.Kind)),
			logger.Error(res.Err))
	}
	if c.Reply == nil {
		return
	}
	select {
	case c.Reply <- res:
	default:
		d.logger.Warn(ctx, "dropping undeliverable reply", logger.String("id", c.ID))
	}
}

// Shutdown stops the dispatcher after the command in flight, if any.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	select {
	case <-d.shutdown:
	default:
		close(d.shutdown)
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}
