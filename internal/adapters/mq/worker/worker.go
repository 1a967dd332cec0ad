package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/happymap/internal/domain/model"
	"github.com/okian/happymap/pkg/logger"
	"github.com/okian/happymap/pkg/metrics"
)

const (
	poolShutdownTimeout = 30 * time.Second
)

// Frame is what workers read off the queue.
type Frame = model.Frame

// Deliverer writes a frame payload to every subscriber of a session and
// returns how many received it.
type Deliverer interface {
	Deliver(ctx context.Context, sessionID string, payload []byte) (int, error)
}

// Queue defines how workers receive frames.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Frame
}

// Worker delivers frames until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	deliverer Deliverer
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, deliverer Deliverer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		deliverer: deliverer,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	frames := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := w.deliver(ctx, f); err != nil {
				w.logger.Warn(ctx, "frame delivery failed", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) deliver(ctx context.Context, f Frame) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	n, err := w.deliverer.Deliver(ctx, f.SessionID, f.Payload)
	if n > 0 {
		metrics.RecordFrameDelivered(n)
	}
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "delivery_error")
		return fmt.Errorf("deliver frame %d of session %s: %w", f.Seq, f.SessionID, err)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers, one per CPU when workerCount < 1.
func NewPool(workerCount int, queue Queue, deliverer Deliverer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range pool.workers {
		pool.workers[i] = NewInMemoryWorker(queue, deliverer, WithName("worker-"+strconv.Itoa(i)))
	}
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
