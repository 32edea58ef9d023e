package simulator

import "time"

// Config holds configuration for the passage simulation run.
type Config struct {
	BaseURL       string        // Base URL of the service
	StageID       string        // Stage to submit passages for
	DeviceID      string        // Decoder device identity
	NumRiders     int           // Number of riders on course
	Laps          int           // Laps per rider (circuit stages)
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	SyncShare     float64       // Fraction of passages held back and uploaded via /sync
	DuplicateRate float64       // Fraction of passages re-sent to exercise replay handling
	OutputFile    string        // Output file for generated passages
	LogFile       string        // Log file for simulation output
	Verbose       bool          // Enable verbose logging
}

// Passage mirrors the wire schema of a raw passage submission.
type Passage struct {
	PassageID string `json:"passage_id"`
	DeviceID  string `json:"device_id"`
	Rider     int    `json:"rider"`
	StageID   string `json:"stage_id"`
	Lap       int    `json:"lap,omitempty"`
	Kind      string `json:"kind"`
	TS        string `json:"ts"`
}

// AckResponse represents the response from live passage submission.
type AckResponse struct {
	Status string `json:"status"`
}

// MergeReport mirrors the sync endpoint's per-batch report.
type MergeReport struct {
	SyncID    string `json:"sync_id"`
	Accepted  int    `json:"accepted"`
	Rejected  int    `json:"rejected"`
	Discarded int    `json:"discarded"`
	Failed    int    `json:"failed"`
}

// TimelineRow mirrors one computed time on the stage timeline.
type TimelineRow struct {
	PassageID      string `json:"passage_id"`
	Rider          int    `json:"rider_number"`
	Index          int    `json:"index"`
	ElapsedDisplay string `json:"elapsed_display"`
	OutOfSequence  bool   `json:"out_of_sequence"`
	Discarded      bool   `json:"discarded"`
	DiscardReason  string `json:"discard_reason,omitempty"`
}

// Stats holds simulation statistics.
type Stats struct {
	PassagesGenerated int
	PassagesSubmitted int
	PassagesAccepted  int
	PassagesThrottled int
	PassagesFailed    int
	SyncBatchesSent   int
	SyncAccepted      int
	SyncDiscarded     int
	TimelineRows      int
	TimelineDiscards  int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
