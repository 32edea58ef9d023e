// Package engine implements the passage-to-result reconciliation pipeline:
// validate -> dedupe -> calculate -> commit. Batches merge idempotently
// and order-independently because every event is evaluated against the
// committed state for its rider, never against batch-local state.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/okian/chicane/internal/adapters/repository"
	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/internal/domain/timing"
	"github.com/okian/chicane/internal/domain/validate"
	"github.com/okian/chicane/pkg/logger"
	"github.com/okian/chicane/pkg/metrics"
)

// defaultParallelism bounds how many rider timelines a single batch merge
// touches concurrently.
const defaultParallelism = 8

// Engine owns the keyed timeline state. Updates for one (stage, rider)
// are mutually exclusive; distinct riders proceed in parallel.
type Engine struct {
	validator *validate.Validator
	calc      *timing.Calculator
	store     repository.Store

	locks       keyedLocks
	parallelism int

	logger logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithParallelism bounds concurrent per-rider merge streams in a batch.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine over the given collaborators.
func New(validator *validate.Validator, calc *timing.Calculator, store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		validator:   validator,
		calc:        calc,
		store:       store,
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}
	return e
}

// Process scores a single live passage. It is Merge of a batch of one,
// without the batch bookkeeping.
func (e *Engine) Process(ctx context.Context, p model.RawPassage) model.Outcome {
	return e.processOne(ctx, p, "")
}

// Merge integrates a batch of passages, live or replayed from an offline
// queue. Events are grouped per rider and processed sequentially within a
// group against committed state, in parallel across groups. Merging the
// same batch twice, or split across calls in any order, converges to the
// same committed set. Cancellation is honored between events, never
// mid-event; already-merged events stay committed.
func (e *Engine) Merge(ctx context.Context, batch []model.RawPassage, originSyncID string) model.MergeReport {
	start := time.Now()
	metrics.RecordMergeBatch(len(batch))

	type posPassage struct {
		pos int
		p   model.RawPassage
	}
	groups := make(map[model.RiderKey][]posPassage)
	for i, p := range batch {
		key := model.RiderKey{StageID: p.StageID, RiderNumber: p.RiderNumber}
		groups[key] = append(groups[key], posPassage{pos: i, p: p})
	}

	outcomes := make([]model.Outcome, len(batch))
	sem := make(chan struct{}, e.parallelism)
	var wg sync.WaitGroup
	for _, group := range groups {
		wg.Add(1)
		go func(group []posPassage) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			for _, pp := range group {
				if err := ctx.Err(); err != nil {
					outcomes[pp.pos] = model.Outcome{
						PassageID: pp.p.PassageID,
						Status:    model.StatusFailed,
						Detail:    "merge canceled: " + err.Error(),
					}
					continue
				}
				outcomes[pp.pos] = e.processOne(ctx, pp.p, originSyncID)
			}
		}(group)
	}
	wg.Wait()

	report := model.MergeReport{SyncID: originSyncID}
	for _, o := range outcomes {
		report.Add(o)
	}
	metrics.RecordMergeLatency(float64(time.Since(start).Milliseconds()))
	e.logger.Debug(ctx, "batch merged",
		logger.String("syncID", originSyncID),
		logger.Int("events", len(batch)),
		logger.Int("accepted", report.Accepted),
		logger.Int("rejected", report.Rejected),
		logger.Int("discarded", report.Discarded),
	)
	return report
}

// processOne runs the full pipeline for one passage under the rider lock.
func (e *Engine) processOne(ctx context.Context, p model.RawPassage, syncOrigin string) model.Outcome {
	res := e.validator.Validate(ctx, p)
	if !res.OK {
		metrics.RecordPassageRejected(string(res.Reason))
		return model.Rejected(p, res.Reason)
	}

	key := model.RiderKey{StageID: p.StageID, RiderNumber: p.RiderNumber}
	mu := e.locks.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	marks, err := e.store.Rider(ctx, key)
	if err != nil {
		metrics.RecordPassageFailed()
		e.logger.Error(ctx, "timeline read failed", logger.String("passageID", p.PassageID), logger.Error(err))
		return model.Outcome{PassageID: p.PassageID, Status: model.StatusFailed, Detail: err.Error()}
	}

	ev := e.calc.Evaluate(res.Stage, marks, p, syncOrigin)
	if ev.Record == nil {
		e.recordOutcomeMetrics(ev.Outcome)
		return ev.Outcome
	}

	marks = append(marks, *ev.Record)
	if ev.SupersededPassageID != "" {
		for i := range marks {
			if marks[i].PassageID == ev.SupersededPassageID && !marks[i].Discarded {
				marks[i].Discarded = true
				marks[i].DiscardReason = model.DiscardSuperseded
				metrics.RecordPassageSuperseded()
				break
			}
		}
	}
	if ev.Outcome.Status == model.StatusAccepted {
		// A new accepted mark can change what later laps chain off.
		marks = timing.Recompute(res.Stage, marks)
	}

	if err := e.store.PutRider(ctx, key, marks); err != nil {
		metrics.RecordPassageFailed()
		e.logger.Error(ctx, "timeline write failed", logger.String("passageID", p.PassageID), logger.Error(err))
		return model.Outcome{PassageID: p.PassageID, Status: model.StatusFailed, Detail: err.Error()}
	}

	e.recordOutcomeMetrics(ev.Outcome)
	return ev.Outcome
}

func (e *Engine) recordOutcomeMetrics(o model.Outcome) {
	switch o.Status {
	case model.StatusAccepted:
		metrics.RecordPassageAccepted()
	case model.StatusDiscarded:
		metrics.RecordPassageDiscarded(string(o.DiscardReason))
	case model.StatusRejected:
		metrics.RecordPassageRejected(string(o.RejectReason))
	case model.StatusFailed:
		metrics.RecordPassageFailed()
	}
}
