// Package dedupe decides whether a passage is a repeat trigger of a
// physical pass already on the timeline.
package dedupe

import (
	"time"

	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/internal/domain/policy"
	"github.com/okian/chicane/internal/domain/types"
)

// Decision is the deduplicator's verdict on a candidate passage.
type Decision struct {
	Suppress bool
	Reason   model.DiscardReason
}

// accept is the zero Decision.
var accept = Decision{}

// Deduper applies the debounce policy. The window is a per-stage tunable
// resolved through the policy package; an override exists for tests and
// for stages timed with non-standard sensing hardware.
type Deduper struct {
	windowOverride func(types.StageView) time.Duration // nil = use policy
}

// New creates a Deduper.
func New(opts ...Option) *Deduper {
	d := &Deduper{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decide compares candidate against the most recent accepted mark for the
// same (stage, rider, kind). Two passages closer together than the stage's
// debounce window are one physical event: the earliest-arriving one is
// kept and later ones are suppressed as Bounce. An identical timestamp
// from the same device is an exact duplicate and is always suppressed.
//
// Candidates timestamped earlier than the last accepted mark are never
// suppressed here; whether they supersede a committed record is the
// merger's tie-break, not a debounce question.
func (d *Deduper) Decide(stage types.StageView, candidate model.RawPassage, last *model.ComputedTime) Decision {
	if last == nil {
		return accept
	}
	if candidate.Timestamp.Equal(last.Timestamp) && candidate.DeviceID == last.DeviceID {
		return Decision{Suppress: true, Reason: model.DiscardDuplicate}
	}
	delta := candidate.Timestamp.Sub(last.Timestamp)
	if delta < 0 {
		return accept
	}
	window := policy.DebounceWindow(stage)
	if d.windowOverride != nil {
		if w := d.windowOverride(stage); w > 0 {
			window = w
		}
	}
	if delta < window {
		return Decision{Suppress: true, Reason: model.DiscardBounce}
	}
	return accept
}
