// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"

	"github.com/okian/chicane/internal/domain/types"
)

// RawPassage represents a single transponder or checkpoint detection as
// emitted by a collector device. It is immutable once received; the
// pipeline never mutates it, only derives ComputedTime records from it.
type RawPassage struct {
	PassageID   string            // unique id for idempotency
	DeviceID    string            // originating collector device
	RiderNumber int               // rider race number on the plate
	StageID     string            // stage the device is timing
	SegmentID   string            // special segment (enduro only)
	Lap         int               // explicit lap number, 0 = unset
	Kind        types.ReadingKind // what the device detected
	Timestamp   time.Time         // detection time, UTC
}

// RiderKey identifies one rider's timeline within a stage. All pipeline
// state is serialized per RiderKey.
type RiderKey struct {
	StageID     string
	RiderNumber int
}

// TimelineKey is the natural key of a committed result: at most one
// non-discarded ComputedTime may exist per TimelineKey.
type TimelineKey struct {
	StageID     string
	RiderNumber int
	Index       int
	Kind        types.ReadingKind
}

// Rider returns the rider-level key for this timeline key.
func (k TimelineKey) Rider() RiderKey {
	return RiderKey{StageID: k.StageID, RiderNumber: k.RiderNumber}
}

// ComputedTime is the engine's primary output: one scored lap or segment
// mark. Records are append-only; supersession and deduplication mark them
// discarded rather than deleting them.
type ComputedTime struct {
	StageID     string            `json:"stage_id"`
	RiderNumber int               `json:"rider_number"`
	Index       int               `json:"index"` // lap or segment index; 0 = recognition mark
	Kind        types.ReadingKind `json:"kind"`

	PassageID string    `json:"passage_id"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`

	// Elapsed is the duration since the previous valid mark. It is nil for
	// the recognition/first mark and always >= 0 otherwise.
	Elapsed        *time.Duration `json:"elapsed,omitempty"`
	ElapsedDisplay string         `json:"elapsed_display,omitempty"`

	// PenaltySeconds is recorded alongside the raw elapsed, never folded
	// into it, so penalties stay auditable and reversible.
	PenaltySeconds int  `json:"penalty_seconds,omitempty"`
	OutOfSequence  bool `json:"out_of_sequence,omitempty"`

	Discarded     bool          `json:"discarded,omitempty"`
	DiscardReason DiscardReason `json:"discard_reason,omitempty"`

	// SyncOrigin is empty for live events and carries the sync session id
	// for events reconciled from an offline batch.
	SyncOrigin string `json:"sync_origin,omitempty"`
	// Supersedes holds the passage id of the record this one replaced.
	Supersedes string `json:"supersedes,omitempty"`
}

// Key returns the natural key of the record.
func (c ComputedTime) Key() TimelineKey {
	return TimelineKey{
		StageID:     c.StageID,
		RiderNumber: c.RiderNumber,
		Index:       c.Index,
		Kind:        c.Kind,
	}
}

// FormatElapsed renders a duration as mm:ss.mmm, the display form used on
// timing screens. Durations of an hour or more gain an hour prefix.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ms := (d - s*time.Second) / time.Millisecond
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms)
	}
	return fmt.Sprintf("%02d:%02d.%03d", m, s, ms)
}
