// Package repository defines the timeline store interface and its
// in-memory implementation. ComputedTime records are append-only: dedup,
// supersession and causality violations mark rows discarded, nothing is
// ever deleted, so the full audit trail survives.
package repository

import (
	"context"

	"github.com/okian/chicane/internal/domain/model"
)

// Store provides read/write access to committed timelines.
//
// Writes are whole-rider replacements: the engine reads a rider's marks,
// evaluates a passage under its per-rider lock, and writes the updated
// set back. The store only guarantees map consistency; serialization per
// rider is the engine's job.
type Store interface {
	// Rider returns a copy of all marks for one rider, discarded included.
	Rider(ctx context.Context, key model.RiderKey) ([]model.ComputedTime, error)

	// PutRider replaces the rider's marks.
	PutRider(ctx context.Context, key model.RiderKey, marks []model.ComputedTime) error

	// Timeline returns one rider's marks ordered by index, then by
	// timestamp for audit rows sharing an index.
	Timeline(ctx context.Context, stageID string, riderNumber int) ([]model.ComputedTime, error)

	// StageRecords returns every mark committed for a stage, the stream
	// consumed by downstream standings computation.
	StageRecords(ctx context.Context, stageID string) ([]model.ComputedTime, error)

	// Riders returns the number of rider timelines tracked.
	Riders(ctx context.Context) int

	// Count returns the total number of stored records.
	Count(ctx context.Context) int
}
