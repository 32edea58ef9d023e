// Package timing converts validated, deduplicated passages into computed
// lap and segment times. It is a pure calculator over a rider's committed
// timeline: every decision is a function of the stage configuration, the
// marks already on the timeline and the candidate passage. State per
// (stage, rider) moves AwaitingStart -> InProgress -> Finished.
package timing

import (
	"time"

	"github.com/okian/chicane/internal/domain/dedupe"
	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/internal/domain/types"
)

// State of a rider on a stage, derived from the committed timeline.
type State string

const (
	StateAwaitingStart State = "awaiting_start"
	StateInProgress    State = "in_progress"
	StateFinished      State = "finished"
)

// StateOf derives the rider's state from the committed marks.
func StateOf(stage types.StageView, marks []model.ComputedTime) State {
	final := stage.FinalIndex()
	any := false
	for i := range marks {
		if marks[i].Discarded {
			continue
		}
		any = true
		if final > 0 && marks[i].Index == final {
			return StateFinished
		}
	}
	if !any {
		return StateAwaitingStart
	}
	return StateInProgress
}

// Evaluation is the calculator's verdict on one candidate passage.
// Record, when non-nil, is the row to append to the timeline: an accepted
// mark, or a discarded audit row. SupersededPassageID names a committed
// record that Record replaces under the causality tie-break.
type Evaluation struct {
	Outcome             model.Outcome
	Record              *model.ComputedTime
	SupersededPassageID string
}

// Calculator scores passages for both disciplines.
type Calculator struct {
	deduper *dedupe.Deduper
}

// New creates a Calculator using the given deduper.
func New(deduper *dedupe.Deduper) *Calculator {
	return &Calculator{deduper: deduper}
}

// Evaluate scores candidate p against the rider's committed timeline.
// marks must be the full committed set for (p.StageID, p.RiderNumber),
// including discarded rows; the caller holds the per-rider lock.
func (c *Calculator) Evaluate(stage types.StageView, marks []model.ComputedTime, p model.RawPassage, syncOrigin string) Evaluation {
	// Replays of an already-recorded passage are duplicates regardless of
	// outcome: a second merge of the same batch must write nothing.
	if hasPassage(marks, p.PassageID) {
		return Evaluation{Outcome: model.Discarded(p, model.DiscardDuplicate)}
	}

	if stage.Discipline == types.DisciplineEnduro {
		return c.evaluateEnduro(stage, marks, p, syncOrigin)
	}
	return c.evaluateCircuit(stage, marks, p, syncOrigin)
}

// discardRow builds an audit row for a suppressed passage. Discarded rows
// are retained, never silently dropped.
func discardRow(p model.RawPassage, index int, reason model.DiscardReason, syncOrigin string) Evaluation {
	rec := baseRecord(p, index, syncOrigin)
	rec.Discarded = true
	rec.DiscardReason = reason
	return Evaluation{Outcome: model.Discarded(p, reason), Record: &rec}
}

func baseRecord(p model.RawPassage, index int, syncOrigin string) model.ComputedTime {
	return model.ComputedTime{
		StageID:     p.StageID,
		RiderNumber: p.RiderNumber,
		Index:       index,
		Kind:        p.Kind,
		PassageID:   p.PassageID,
		DeviceID:    p.DeviceID,
		Timestamp:   p.Timestamp,
		SyncOrigin:  syncOrigin,
	}
}

func setElapsed(rec *model.ComputedTime, d time.Duration) {
	rec.Elapsed = &d
	rec.ElapsedDisplay = model.FormatElapsed(d)
}

// hasPassage reports whether the timeline already carries passageID.
func hasPassage(marks []model.ComputedTime, passageID string) bool {
	for i := range marks {
		if marks[i].PassageID == passageID {
			return true
		}
	}
	return false
}

// acceptedAt returns the non-discarded mark at index, if any. The kind is
// deliberately ignored: the timeline invariant is one non-discarded mark
// per index, whatever kind recorded it.
func acceptedAt(marks []model.ComputedTime, index int) *model.ComputedTime {
	for i := range marks {
		if !marks[i].Discarded && marks[i].Index == index {
			return &marks[i]
		}
	}
	return nil
}

// lastAcceptedOfKind returns the accepted mark of the given kind with the
// latest timestamp; the debounce window is anchored to it.
func lastAcceptedOfKind(marks []model.ComputedTime, kind types.ReadingKind) *model.ComputedTime {
	var last *model.ComputedTime
	for i := range marks {
		m := &marks[i]
		if m.Discarded || m.Kind != kind {
			continue
		}
		if last == nil || m.Timestamp.After(last.Timestamp) {
			last = m
		}
	}
	return last
}

// maxAcceptedIndex returns the highest accepted index, or -1 when the
// timeline has no accepted marks.
func maxAcceptedIndex(marks []model.ComputedTime) int {
	maxIdx := -1
	for i := range marks {
		if !marks[i].Discarded && marks[i].Index > maxIdx {
			maxIdx = marks[i].Index
		}
	}
	return maxIdx
}

// priorAccepted returns the accepted mark with the highest index strictly
// below index. Elapsed is always computed against a lower-indexed mark,
// never a higher one.
func priorAccepted(marks []model.ComputedTime, index int) *model.ComputedTime {
	var prior *model.ComputedTime
	for i := range marks {
		m := &marks[i]
		if m.Discarded || m.Index >= index {
			continue
		}
		if prior == nil || m.Index > prior.Index {
			prior = m
		}
	}
	return prior
}
