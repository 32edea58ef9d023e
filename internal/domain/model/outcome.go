package model

import "time"

// RejectReason explains a validation failure. A rejected passage produced
// no ComputedTime at all.
type RejectReason string

const (
	RejectUnknownRider         RejectReason = "unknown_rider"
	RejectInactiveDevice       RejectReason = "inactive_device"
	RejectStageClosed          RejectReason = "stage_closed"
	RejectWrongReadingKind     RejectReason = "wrong_reading_kind"
	RejectValidatorUnavailable RejectReason = "validator_unavailable"
)

// DiscardReason explains why a post-validation policy marked a record
// discarded. Discarded records are retained for audit.
type DiscardReason string

const (
	DiscardBounce        DiscardReason = "bounce"
	DiscardDuplicate     DiscardReason = "duplicate"
	DiscardSuperseded    DiscardReason = "superseded"
	DiscardStageFinished DiscardReason = "stage_already_finished"
	DiscardCausality     DiscardReason = "causality_violation"
)

// OutcomeStatus is the per-event result category of the pipeline.
type OutcomeStatus string

const (
	// StatusAccepted means a non-discarded ComputedTime was committed.
	StatusAccepted OutcomeStatus = "accepted"
	// StatusRejected means validation failed; nothing was committed.
	StatusRejected OutcomeStatus = "rejected"
	// StatusDiscarded means the event was recorded but marked discarded.
	StatusDiscarded OutcomeStatus = "discarded"
	// StatusFailed means an invariant or storage failure aborted this one
	// event. The rest of the batch is unaffected.
	StatusFailed OutcomeStatus = "failed"
)

// Outcome is the structured result for a single passage. The pipeline
// never raises an error for one bad event; it reports it here.
type Outcome struct {
	PassageID     string        `json:"passage_id"`
	Status        OutcomeStatus `json:"status"`
	RejectReason  RejectReason  `json:"reject_reason,omitempty"`
	DiscardReason DiscardReason `json:"discard_reason,omitempty"`
	OutOfSequence bool          `json:"out_of_sequence,omitempty"`
	// Superseded holds the passage id of a previously committed record
	// this event replaced under the causality tie-break.
	Superseded string `json:"superseded,omitempty"`
	Detail     string `json:"detail,omitempty"` // failure detail, StatusFailed only
}

// Rejected builds a rejection outcome for p.
func Rejected(p RawPassage, reason RejectReason) Outcome {
	return Outcome{PassageID: p.PassageID, Status: StatusRejected, RejectReason: reason}
}

// Discarded builds a discard outcome for p.
func Discarded(p RawPassage, reason DiscardReason) Outcome {
	return Outcome{PassageID: p.PassageID, Status: StatusDiscarded, DiscardReason: reason}
}

// MergeReport aggregates the outcomes of one batch merge. Partial success
// is the normal case, not an error.
type MergeReport struct {
	SyncID    string    `json:"sync_id,omitempty"`
	Outcomes  []Outcome `json:"outcomes"`
	Accepted  int       `json:"accepted"`
	Rejected  int       `json:"rejected"`
	Discarded int       `json:"discarded"`
	Failed    int       `json:"failed"`
}

// Add appends an outcome and updates the counters.
func (r *MergeReport) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusAccepted:
		r.Accepted++
	case StatusRejected:
		r.Rejected++
	case StatusDiscarded:
		r.Discarded++
	case StatusFailed:
		r.Failed++
	}
}

// Heartbeat is the self-reported status of a collector device, consumed by
// the operations surface irrespective of the engine's internals.
type Heartbeat struct {
	DeviceID        string    `json:"device_id"`
	PendingReadings int       `json:"pending_readings"`
	LastReadingAt   time.Time `json:"last_reading_at"`
	BatteryPercent  int       `json:"battery_percent"`
	Online          bool      `json:"online"`
	ReportedAt      time.Time `json:"reported_at"`
}
