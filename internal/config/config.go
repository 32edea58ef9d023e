// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/chicane/internal/domain/types"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory live passage queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of live-path workers.
	WorkerCount int `koanf:"worker_count"`

	// ShardCount configures the number of shards in the timeline store.
	ShardCount int `koanf:"shard_count"`

	// MergeParallelism bounds concurrent per-rider streams in a batch merge.
	MergeParallelism int `koanf:"merge_parallelism"`

	// LookupTimeoutMS bounds the validator's external lookups per passage.
	LookupTimeoutMS int `koanf:"lookup_timeout_ms"`

	// Seed data for the in-memory registry. In deployments backed by real
	// registration services these sections stay empty.
	Stages        []StageConfig        `koanf:"stages"`
	Devices       []DeviceConfig       `koanf:"devices"`
	Registrations []RegistrationConfig `koanf:"registrations"`
}

// StageConfig seeds one stage's timing configuration.
type StageConfig struct {
	ID             string  `koanf:"id"`
	Discipline     string  `koanf:"discipline"` // circuit or enduro
	Open           bool    `koanf:"open"`
	LapCount       int     `koanf:"lap_count"`
	RecognitionLap bool    `koanf:"recognition_lap"`
	OfficialStart  string  `koanf:"official_start"` // RFC3339
	DebounceMS     int     `koanf:"debounce_ms"`
	SensingZoneM   float64 `koanf:"sensing_zone_m"`
	MinSpeedKPH    float64 `koanf:"min_speed_kph"`

	Segments []SegmentConfig `koanf:"segments"`
}

// SegmentConfig seeds one enduro special segment.
type SegmentConfig struct {
	ID              string `koanf:"id"`
	Index           int    `koanf:"index"`
	Start           string `koanf:"start"`            // RFC3339
	ControlDeadline string `koanf:"control_deadline"` // RFC3339, empty = none
	PenaltySeconds  int    `koanf:"penalty_seconds"`
}

// DeviceConfig authorizes one collector device for a stage.
type DeviceConfig struct {
	ID         string `koanf:"id"`
	StageID    string `koanf:"stage_id"`
	Authorized bool   `koanf:"authorized"`
}

// RegistrationConfig seeds one rider registration.
type RegistrationConfig struct {
	StageID     string `koanf:"stage_id"`
	RiderNumber int    `koanf:"rider_number"`
	RiderID     string `koanf:"rider_id"`
	CategoryID  string `koanf:"category_id"`
	Active      bool   `koanf:"active"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		QueueSize:        100_000,
		WorkerCount:      runtime.NumCPU() * 4,
		ShardCount:       8,
		MergeParallelism: 8,
		LookupTimeoutMS:  2000,
	}
}

// View converts the seed device to its domain projection.
func (c DeviceConfig) View() types.DeviceView {
	return types.DeviceView{Authorized: c.Authorized}
}

// View converts the seed registration to its domain projection.
func (c RegistrationConfig) View() types.RegistrationView {
	return types.RegistrationView{
		RiderID:    c.RiderID,
		CategoryID: c.CategoryID,
		Active:     c.Active,
	}
}

// View converts the seed stage to its domain projection.
func (c StageConfig) View() (types.StageView, error) {
	s := types.StageView{
		ID:                c.ID,
		Discipline:        types.Discipline(c.Discipline),
		Open:              c.Open,
		LapCount:          c.LapCount,
		RecognitionLap:    c.RecognitionLap,
		DebounceWindow:    time.Duration(c.DebounceMS) * time.Millisecond,
		SensingZoneMeters: c.SensingZoneM,
		MinSpeedKPH:       c.MinSpeedKPH,
	}
	switch s.Discipline {
	case types.DisciplineCircuit, types.DisciplineEnduro:
	default:
		return s, fmt.Errorf("%w: stage %s: unknown discipline %q", ErrInvalidConfig, c.ID, c.Discipline)
	}
	if c.OfficialStart != "" {
		t, err := time.Parse(time.RFC3339, c.OfficialStart)
		if err != nil {
			return s, fmt.Errorf("%w: stage %s: official_start: %v", ErrInvalidConfig, c.ID, err)
		}
		s.OfficialStart = t
	}
	for _, sc := range c.Segments {
		seg := types.SegmentView{
			ID:             sc.ID,
			Index:          sc.Index,
			PenaltySeconds: sc.PenaltySeconds,
		}
		if sc.Start != "" {
			t, err := time.Parse(time.RFC3339, sc.Start)
			if err != nil {
				return s, fmt.Errorf("%w: segment %s: start: %v", ErrInvalidConfig, sc.ID, err)
			}
			seg.Start = t
		}
		if sc.ControlDeadline != "" {
			t, err := time.Parse(time.RFC3339, sc.ControlDeadline)
			if err != nil {
				return s, fmt.Errorf("%w: segment %s: control_deadline: %v", ErrInvalidConfig, sc.ID, err)
			}
			seg.ControlDeadline = t
		}
		s.Segments = append(s.Segments, seg)
	}
	return s, nil
}
