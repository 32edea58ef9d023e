// Package policy holds the pure clock and window rules of the timing
// engine: debounce window sizing, recognition-lap applicability, and
// control-time penalties. Nothing here performs I/O or reads the wall
// clock; every function is a deterministic function of its inputs.
package policy

import (
	"time"

	"github.com/okian/chicane/internal/domain/types"
)

// Defaults used when a stage does not configure its own window.
const (
	// defaultSensingZoneMeters is the assumed length of a checkpoint's
	// detection loop when the stage does not specify one.
	defaultSensingZoneMeters = 20.0
	// defaultMinSpeedKPH is the slowest plausible crossing speed.
	defaultMinSpeedKPH = 15.0
	// maxDebounceWindow caps derived windows so a misconfigured stage can
	// never swallow legitimate laps.
	maxDebounceWindow = 30 * time.Second
)

// DebounceWindow returns the minimum plausible interval between two
// distinct passages of the same rider at the same checkpoint. An explicit
// per-stage window wins; otherwise the window is derived from the sensing
// zone length and the minimum plausible speed over it.
func DebounceWindow(stage types.StageView) time.Duration {
	if stage.DebounceWindow > 0 {
		return stage.DebounceWindow
	}
	zone := stage.SensingZoneMeters
	if zone <= 0 {
		zone = defaultSensingZoneMeters
	}
	speed := stage.MinSpeedKPH
	if speed <= 0 {
		speed = defaultMinSpeedKPH
	}
	// Time to clear the zone at the minimum plausible speed.
	seconds := zone / (speed / 3.6)
	w := time.Duration(seconds * float64(time.Second))
	if w > maxDebounceWindow {
		return maxDebounceWindow
	}
	return w
}

// RecognitionApplies reports whether the first accepted passage of a rider
// on this stage is a non-scoring recognition mark.
func RecognitionApplies(stage types.StageView) bool {
	return stage.Discipline == types.DisciplineCircuit && stage.RecognitionLap
}

// PenaltyFor returns the penalty seconds accrued by arriving at segment
// seg at ts. Segments without a control deadline never accrue penalties.
func PenaltyFor(seg types.SegmentView, ts time.Time) int {
	if seg.ControlDeadline.IsZero() || !ts.After(seg.ControlDeadline) {
		return 0
	}
	return seg.PenaltySeconds
}

// KindPermitted reports whether a reading kind is meaningful for the
// stage's discipline. Checkpoint readings only exist on enduro stages;
// plain passages only on circuit stages. Manual readings are always
// permitted, they are the operator's override path.
func KindPermitted(stage types.StageView, kind types.ReadingKind) bool {
	switch kind {
	case types.KindManual:
		return true
	case types.KindCheckpoint:
		return stage.Discipline == types.DisciplineEnduro
	case types.KindPassage:
		return stage.Discipline == types.DisciplineCircuit
	}
	return false
}
