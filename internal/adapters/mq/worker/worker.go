// Package worker drains the live passage queue into the reconciliation
// engine.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/pkg/logger"
	"github.com/okian/chicane/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Processor scores a single live passage. Outcomes are values, not
// errors: a rejected or discarded passage is normal operation.
type Processor interface {
	Process(ctx context.Context, p model.RawPassage) model.Outcome
}

// Queue defines how workers receive passages.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.RawPassage
}

// Worker processes live passages off the queue.
type Worker struct {
	queue     Queue
	processor Processor
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(queue Queue, processor Processor, opts ...Option) *Worker {
	w := &Worker{
		queue:     queue,
		processor: processor,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop until ctx is canceled or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	passages := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case p, ok := <-passages:
			if !ok {
				return
			}
			w.process(ctx, p)
		}
	}
}

func (w *Worker) process(ctx context.Context, p model.RawPassage) {
	start := time.Now()
	outcome := w.processor.Process(ctx, p)
	metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))

	switch outcome.Status {
	case model.StatusFailed:
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "passage processing failed",
			logger.String("passageID", p.PassageID),
			logger.String("detail", outcome.Detail),
		)
	case model.StatusRejected:
		w.logger.Debug(ctx, "passage rejected",
			logger.String("passageID", p.PassageID),
			logger.String("reason", string(outcome.RejectReason)),
		)
	case model.StatusDiscarded:
		w.logger.Debug(ctx, "passage discarded",
			logger.String("passageID", p.PassageID),
			logger.String("reason", string(outcome.DiscardReason)),
		)
	case model.StatusAccepted:
		// Nothing to log on the hot path.
	}
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages a fixed set of workers.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
	logger  logger.Logger
}

// NewPool creates and wires workerCount workers over the queue.
func NewPool(workerCount int, queue Queue, processor Processor) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewWorker(queue, processor, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stop shuts the pool down, waiting for in-flight passages to finish.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), poolShutdownTimeout)
	defer cancel()

	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker shutdown", logger.Error(err))
		}
	}
	p.wg.Wait()
	metrics.UpdateWorkerCount(0)
}
