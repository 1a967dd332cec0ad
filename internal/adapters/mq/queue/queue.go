// Package queue holds encoded frames between the dashboards that produce
// them and the workers that deliver them to WebSocket subscribers.
//
// Enqueue never blocks: a full queue drops the frame, so a slow consumer
// loses intermediate frames instead of stalling a session.
package queue

import (
	"context"
	"sync"

	"github.com/okian/happymap/internal/domain/model"
	"github.com/okian/happymap/pkg/metrics"
)

const defaultQueueCapacity = 4096

// Frame is the payload type flowing through the queue.
type Frame = model.Frame

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue offers a frame. It returns ErrFull or ErrClosed when the frame
	// was dropped.
	Enqueue(ctx context.Context, f Frame) error

	// Dequeue returns a channel that receives frames until the queue is closed.
	Dequeue(ctx context.Context) <-chan Frame

	// Len returns the current number of queued frames.
	Len(ctx context.Context) int

	// Close stops accepting frames and closes the dequeue channel once drained.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	frames   chan Frame
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.frames = make(chan Frame, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds a frame without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f Frame) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordFrameDropped()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordFrameDropped()
		return err
	}

	select {
	case q.frames <- f:
		metrics.RecordFrameEnqueued()
		q.observe()
		return nil
	default:
		metrics.RecordFrameDropped()
		metrics.RecordErrorByComponent("queue", "full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive frames as they become available.
// Several consumers may call Dequeue; each frame goes to exactly one of them.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Frame {
	out := make(chan Frame)
	go func() {
		defer close(out)
		for f := range q.frames {
			select {
			case out <- f:
				q.observe()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued frames.
func (q *InMemoryQueue) Len(_ context.Context) int {
	q.observe()
	return len(q.frames)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.frames)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observe() {
	size := len(q.frames)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
