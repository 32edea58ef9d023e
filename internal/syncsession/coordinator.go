// Package syncsession coordinates offline-queue uploads from collector
// devices: batch acceptance with partial success, replay-safe retries,
// and the pending-count accounting behind the device heartbeat surface.
package syncsession

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/pkg/logger"
	"github.com/okian/chicane/pkg/metrics"
)

// Merger integrates a batch into the authoritative timeline. The engine's
// Merge is idempotent, which is what makes retried submissions safe: a
// replay is just another call.
type Merger interface {
	Merge(ctx context.Context, batch []model.RawPassage, originSyncID string) model.MergeReport
}

// Coordinator tracks device telemetry and drives batch submissions.
type Coordinator struct {
	merger Merger
	clock  clockwork.Clock
	logger logger.Logger

	mu      sync.RWMutex
	devices map[string]model.Heartbeat
}

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithClock injects the clock used to stamp telemetry.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the coordinator.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Coordinator over the given merger.
func New(merger Merger, opts ...Option) *Coordinator {
	c := &Coordinator{
		merger:  merger,
		clock:   clockwork.NewRealClock(),
		devices: make(map[string]model.Heartbeat),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("syncsession")
	}
	return c
}

// SubmitBatch uploads a device's offline queue. The batch never fails as
// a whole: each passage gets its own outcome in the report. A nil or
// empty batch is a no-op heartbeat.
func (c *Coordinator) SubmitBatch(ctx context.Context, deviceID string, passages []model.RawPassage) model.MergeReport {
	syncID := uuid.NewString()
	for i := range passages {
		if passages[i].DeviceID == "" {
			passages[i].DeviceID = deviceID
		}
	}

	report := c.merger.Merge(ctx, passages, syncID)
	metrics.RecordSyncBatch(len(passages))

	// Everything that got a definitive outcome counts as drained from the
	// device's backlog; failed events stay pending for the next retry.
	acknowledged := len(report.Outcomes) - report.Failed
	c.acknowledge(deviceID, acknowledged, passages)

	c.logger.Info(ctx, "sync batch processed",
		logger.String("deviceID", deviceID),
		logger.String("syncID", syncID),
		logger.Int("events", len(passages)),
		logger.Int("accepted", report.Accepted),
		logger.Int("failed", report.Failed),
	)
	return report
}

func (c *Coordinator) acknowledge(deviceID string, acknowledged int, passages []model.RawPassage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hb := c.devices[deviceID]
	hb.DeviceID = deviceID
	hb.Online = true
	hb.ReportedAt = c.clock.Now()
	if hb.PendingReadings > acknowledged {
		hb.PendingReadings -= acknowledged
	} else {
		hb.PendingReadings = 0
	}
	for i := range passages {
		if passages[i].Timestamp.After(hb.LastReadingAt) {
			hb.LastReadingAt = passages[i].Timestamp
		}
	}
	c.devices[deviceID] = hb
	metrics.UpdateDevicePending(deviceID, hb.PendingReadings)
}

// RecordHeartbeat stores a device's self-reported status and returns the
// stamped record.
func (c *Coordinator) RecordHeartbeat(hb model.Heartbeat) model.Heartbeat {
	c.mu.Lock()
	defer c.mu.Unlock()
	hb.ReportedAt = c.clock.Now()
	c.devices[hb.DeviceID] = hb
	metrics.UpdateDevicePending(hb.DeviceID, hb.PendingReadings)
	return hb
}

// Heartbeat returns the last known status for a device.
func (c *Coordinator) Heartbeat(deviceID string) (model.Heartbeat, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hb, ok := c.devices[deviceID]
	return hb, ok
}

// PendingCount returns the device's last reported backlog net of
// acknowledged submissions.
func (c *Coordinator) PendingCount(deviceID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.devices[deviceID].PendingReadings
}

// Devices lists the last known status of every device seen.
func (c *Coordinator) Devices() []model.Heartbeat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Heartbeat, 0, len(c.devices))
	for _, hb := range c.devices {
		out = append(out, hb)
	}
	return out
}
