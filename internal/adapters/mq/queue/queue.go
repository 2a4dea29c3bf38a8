// Package queue carries session commands from presentation adapters to the dispatcher.
//
// The queue is bounded and never blocks a producer: a full queue rejects the
// command so the adapter can report back-pressure to its client.
package queue

import (
	"context"
	"sync"

	"github.com/okian/elorank/internal/domain/model"
	"github.com/okian/elorank/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 64
)

// Command is the payload type flowing through the queue.
type Command = model.Command

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a command. Returns ErrQueueFull or ErrQueueClosed when the
	// command was not accepted.
	Enqueue(ctx context.Context, c Command) error

	// Dequeue returns a channel that receives commands in arrival order.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Command

	// Len returns the current number of queued commands.
	Len(ctx context.Context) int

	// Close stops accepting commands.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	commands chan Command
	capacity int
	mu       sync.RWMutex
	closed   bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.commands = make(chan Command, q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds a command to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Command) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrQueueClosed
	}

	select {
	case q.commands <- c:
		metrics.UpdateQueueSize(len(q.commands))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrQueueFull
	}
}

// Dequeue returns a channel that will receive commands as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Command {
	out := make(chan Command)
	go func() {
		defer close(out)
		for c := range q.commands {
			select {
			case out <- c:
				metrics.UpdateQueueSize(len(q.commands))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued commands.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.commands)
	metrics.UpdateQueueSize(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.commands)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
