// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	eventqueue "github.com/okian/chicane/internal/adapters/mq/queue"
	workerpool "github.com/okian/chicane/internal/adapters/mq/worker"
	"github.com/okian/chicane/internal/adapters/repository"
	"github.com/okian/chicane/internal/domain/dedupe"
	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/internal/domain/timing"
	"github.com/okian/chicane/internal/domain/validate"
	"github.com/okian/chicane/internal/engine"
	"github.com/okian/chicane/internal/registry"
	"github.com/okian/chicane/internal/syncsession"
	"github.com/okian/chicane/pkg/logger"
	"github.com/okian/chicane/pkg/metrics"
)

// Service wires the reconciliation pipeline: registry-backed validation,
// debounce, lap/stage calculation, the keyed merge engine, the live
// queue/worker path and the sync coordinator.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry    *registry.Registry
	store       *repository.MemStore
	engine      *engine.Engine
	coordinator *syncsession.Coordinator
	queue       eventqueue.Queue
	pool        *workerpool.Pool

	// Configuration
	workerCount      int
	queueSize        int
	shardCount       int
	mergeParallelism int
	lookupTimeout    time.Duration
	clock            clockwork.Clock

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of live-path worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the live passage queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithShardCount sets the timeline store shard count.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithMergeParallelism bounds concurrent per-rider streams in batch merges.
func WithMergeParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.mergeParallelism = n
		}
	}
}

// WithLookupTimeout bounds the validator's external lookups.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lookupTimeout = d
		}
	}
}

// WithClock injects the clock used for device telemetry stamps.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		registry:         registry.New(),
		workerCount:      0, // pool picks its own default
		queueSize:        100_000,
		shardCount:       8,
		mergeParallelism: 8,
		lookupTimeout:    2 * time.Second,
		clock:            clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the lookup registry for seeding and operations.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting timing service...")

	s.store = repository.NewMemStore(repository.WithShardCount(s.shardCount))
	validator := validate.New(s.registry, s.registry, s.registry,
		validate.WithLookupTimeout(s.lookupTimeout),
	)
	calc := timing.New(dedupe.New())
	s.engine = engine.New(validator, calc, s.store,
		engine.WithParallelism(s.mergeParallelism),
		engine.WithLogger(s.logger.Named("engine")),
	)
	s.coordinator = syncsession.New(s.engine,
		syncsession.WithClock(s.clock),
		syncsession.WithLogger(s.logger.Named("syncsession")),
	)
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.engine)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "timing service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("shards", s.shardCount),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping timing service...")

	if q, ok := s.queue.(*eventqueue.InMemoryQueue); ok {
		_ = q.Close()
	}
	if s.pool != nil {
		s.pool.Stop()
	}

	s.started = false
	s.logger.Info(ctx, "timing service stopped")
}

// EnqueuePassage submits a live passage for asynchronous processing.
// Returns false on backpressure.
func (s *Service) EnqueuePassage(ctx context.Context, p model.RawPassage) bool {
	return s.queue.Enqueue(ctx, p)
}

// SubmitBatch uploads a device's offline queue synchronously and returns
// the per-event merge report.
func (s *Service) SubmitBatch(ctx context.Context, deviceID string, passages []model.RawPassage) model.MergeReport {
	return s.coordinator.SubmitBatch(ctx, deviceID, passages)
}

// Timeline returns one rider's committed marks, audit rows included.
func (s *Service) Timeline(ctx context.Context, stageID string, riderNumber int) ([]model.ComputedTime, error) {
	return s.store.Timeline(ctx, stageID, riderNumber)
}

// StageRecords returns the full computed-time stream for a stage.
func (s *Service) StageRecords(ctx context.Context, stageID string) ([]model.ComputedTime, error) {
	return s.store.StageRecords(ctx, stageID)
}

// RecordHeartbeat stores a device's self-reported status.
func (s *Service) RecordHeartbeat(hb model.Heartbeat) model.Heartbeat {
	return s.coordinator.RecordHeartbeat(hb)
}

// Heartbeat returns the last known status for a device.
func (s *Service) Heartbeat(deviceID string) (model.Heartbeat, bool) {
	return s.coordinator.Heartbeat(deviceID)
}

// Devices lists the last known status of every device seen.
func (s *Service) Devices() []model.Heartbeat {
	return s.coordinator.Devices()
}

// PendingCount returns a device's outstanding backlog.
func (s *Service) PendingCount(deviceID string) int {
	return s.coordinator.PendingCount(deviceID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":   s.started,
		"queueSize": s.queueSize,
		"shards":    s.shardCount,
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		records := s.store.Count(ctx)
		riders := s.store.Riders(ctx)

		stats["queueLength"] = queueLen
		stats["timelineRecords"] = records
		stats["trackedRiders"] = riders
		stats["devices"] = len(s.coordinator.Devices())

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTimelineRecords(records)
		metrics.UpdateTrackedRiders(riders)
	}
	return stats
}
