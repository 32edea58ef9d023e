// Package queue defines the contract for enqueuing and consuming live
// passages on their way into the reconciliation engine.
package queue

import (
	"context"
	"sync"

	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 100000
)

// Passage is the payload type flowing through the queue.
type Passage = model.RawPassage

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a passage to the queue.
	// Returns false if the queue is full and the passage was not enqueued.
	Enqueue(ctx context.Context, p Passage) bool

	// Dequeue returns a channel that will receive passages as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Passage

	// Len returns the current number of queued passages.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue. After closing, no new
	// passages can be enqueued and the dequeue channel is closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	passages chan Passage
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.passages = make(chan Passage, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a passage to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, p Passage) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return false
	}

	select {
	case q.passages <- p:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.passages))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError("context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive passages as they become
// available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Passage {
	out := make(chan Passage)
	go func() {
		defer close(out)
		for p := range q.passages {
			select {
			case out <- p:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.passages))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued passages.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.passages)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.passages)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
