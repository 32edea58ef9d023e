// Package types contains common types used across the application
package types

import "time"

// Discipline selects the timing rules for a stage.
type Discipline string

const (
	// DisciplineCircuit times riders repeating the same checkpoint each lap.
	DisciplineCircuit Discipline = "circuit"
	// DisciplineEnduro times an ordered sequence of special segments,
	// each scored once against its own start reference.
	DisciplineEnduro Discipline = "enduro"
)

// ReadingKind classifies what a device detected.
type ReadingKind string

const (
	// KindPassage is a generic transponder passage at a checkpoint.
	KindPassage ReadingKind = "passage"
	// KindCheckpoint is a special-segment checkpoint reading (enduro).
	KindCheckpoint ReadingKind = "checkpoint"
	// KindManual is an operator-entered reading.
	KindManual ReadingKind = "manual"
)

// Valid reports whether k is a known reading kind.
func (k ReadingKind) Valid() bool {
	switch k {
	case KindPassage, KindCheckpoint, KindManual:
		return true
	}
	return false
}

// RegistrationView is the read-only projection of a rider's registration
// for one stage, as served by the external registration service.
type RegistrationView struct {
	RiderID    string `json:"rider_id"`
	CategoryID string `json:"category_id"`
	Active     bool   `json:"active"`
}

// DeviceView is the authorization projection for a device on a stage.
type DeviceView struct {
	Authorized bool `json:"authorized"`
}

// SegmentView describes one special segment of an enduro stage.
type SegmentView struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	// Start is the segment's start reference; elapsed is scored against it.
	Start time.Time `json:"start"`
	// ControlDeadline is the latest arrival without penalty. Zero means
	// the segment carries no control time.
	ControlDeadline time.Time `json:"control_deadline"`
	PenaltySeconds  int       `json:"penalty_seconds"`
}

// StageView is the stage configuration projection consumed by the engine.
type StageView struct {
	ID         string     `json:"id"`
	Discipline Discipline `json:"discipline"`
	Open       bool       `json:"open"`

	// Circuit settings.
	LapCount       int       `json:"lap_count"` // 0 = open-ended
	RecognitionLap bool      `json:"recognition_lap"`
	OfficialStart  time.Time `json:"official_start"` // lap 1 reference when no recognition lap

	// Debounce tuning. When DebounceWindow is zero the window is derived
	// from the sensing zone length and the minimum plausible speed.
	DebounceWindow    time.Duration `json:"debounce_window"`
	SensingZoneMeters float64       `json:"sensing_zone_meters"`
	MinSpeedKPH       float64       `json:"min_speed_kph"`

	// Enduro settings.
	Segments []SegmentView `json:"segments"`
}

// Segment returns the segment with the given id, if configured.
func (s StageView) Segment(id string) (SegmentView, bool) {
	for _, seg := range s.Segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return SegmentView{}, false
}

// FinalIndex returns the index of the last scored lap or segment,
// or 0 when the stage is open-ended.
func (s StageView) FinalIndex() int {
	if s.Discipline == DisciplineEnduro {
		return len(s.Segments)
	}
	return s.LapCount
}
