// Package dedupe decides whether a passage is a repeat trigger of a
// physical pass already on the timeline.
package dedupe

import (
	"time"

	"github.com/okian/chicane/internal/domain/types"
)

// Option applies a configuration option to the Deduper.
type Option func(*Deduper)

// WithWindow overrides the per-stage debounce window resolution.
func WithWindow(fn func(types.StageView) time.Duration) Option {
	return func(d *Deduper) {
		d.windowOverride = fn
	}
}

// WithFixedWindow overrides the debounce window with a single value for
// every stage.
func WithFixedWindow(w time.Duration) Option {
	return WithWindow(func(types.StageView) time.Duration { return w })
}
