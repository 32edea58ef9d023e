package timing

import (
	"sort"
	"time"

	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/internal/domain/policy"
	"github.com/okian/chicane/internal/domain/types"
)

// evaluateCircuit scores a lap passage. Lap indices start at 1; index 0 is
// the recognition mark when the stage runs one.
func (c *Calculator) evaluateCircuit(stage types.StageView, marks []model.ComputedTime, p model.RawPassage, syncOrigin string) Evaluation {
	maxIdx := maxAcceptedIndex(marks)

	var index int
	switch {
	case p.Lap > 0:
		index = p.Lap
	case maxIdx < 0:
		if policy.RecognitionApplies(stage) {
			index = 0
		} else {
			index = 1
		}
	default:
		index = maxIdx + 1
	}

	// A candidate targeting an occupied index is the merger's tie-break:
	// an earlier-timestamped straggler replaces the committed mark, a
	// later or equal one is a duplicate. This runs before the finished
	// check so a delayed offline sync can still correct a committed lap.
	if occ := acceptedAt(marks, index); occ != nil {
		if p.Timestamp.Before(occ.Timestamp) {
			return c.commitCircuit(stage, marks, p, index, syncOrigin, occ)
		}
		return discardRow(p, index, model.DiscardDuplicate, syncOrigin)
	}

	// Debounce first: a physical re-trigger inside the window keeps its
	// bounce label even when it lands past the rider's final lap.
	if dec := c.deduper.Decide(stage, p, lastAcceptedOfKind(marks, p.Kind)); dec.Suppress {
		return discardRow(p, index, dec.Reason, syncOrigin)
	}

	// Indices at or below the final lap stay mergeable even after the
	// rider finished, so a late sync can backfill a gap. Only readings
	// beyond the distance are dead.
	final := stage.FinalIndex()
	if final > 0 && index > final {
		return discardRow(p, index, model.DiscardStageFinished, syncOrigin)
	}

	return c.commitCircuit(stage, marks, p, index, syncOrigin, nil)
}

func (c *Calculator) commitCircuit(stage types.StageView, marks []model.ComputedTime, p model.RawPassage, index int, syncOrigin string, supersedes *model.ComputedTime) Evaluation {
	rec := baseRecord(p, index, syncOrigin)

	outOfSeq := false
	if index > 0 {
		refTime, known := circuitReference(stage, marks, index)
		if known {
			if p.Timestamp.Before(refTime) {
				// Would produce a negative elapsed: causality violation,
				// discarded rather than raised.
				return discardRow(p, index, model.DiscardCausality, syncOrigin)
			}
			setElapsed(&rec, p.Timestamp.Sub(refTime))
		} else {
			// No lower-indexed mark to score against yet.
			outOfSeq = true
		}

		if supersedes == nil {
			expected := maxAcceptedIndex(marks) + 1
			if expected == 0 && !policy.RecognitionApplies(stage) {
				expected = 1
			}
			if index != expected {
				outOfSeq = true
			}
		}
	}
	rec.OutOfSequence = outOfSeq
	if supersedes != nil {
		rec.Supersedes = supersedes.PassageID
	}

	ev := Evaluation{
		Outcome: model.Outcome{
			PassageID:     p.PassageID,
			Status:        model.StatusAccepted,
			OutOfSequence: outOfSeq,
		},
		Record: &rec,
	}
	if supersedes != nil {
		ev.SupersededPassageID = supersedes.PassageID
		ev.Outcome.Superseded = supersedes.PassageID
	}
	return ev
}

// circuitReference returns the timestamp a lap's elapsed is scored from:
// the most recent lower-indexed accepted mark, or the official start for
// lap 1 on stages without a recognition lap.
func circuitReference(stage types.StageView, marks []model.ComputedTime, index int) (time.Time, bool) {
	if ref := priorAccepted(marks, index); ref != nil {
		return ref.Timestamp, true
	}
	if index == 1 && !policy.RecognitionApplies(stage) && !stage.OfficialStart.IsZero() {
		return stage.OfficialStart, true
	}
	return time.Time{}, false
}

// Recompute rebuilds the derived elapsed values of a rider's accepted
// marks after the timeline changed shape (a supersession or a straggler
// filling a gap). Enduro marks are scored against fixed segment starts
// and never need recomputing; circuit laps chain off each other and do.
// Discarded rows are returned untouched.
func Recompute(stage types.StageView, marks []model.ComputedTime) []model.ComputedTime {
	if stage.Discipline == types.DisciplineEnduro {
		return marks
	}

	order := make([]int, 0, len(marks))
	for i := range marks {
		if !marks[i].Discarded {
			order = append(order, i)
		}
	}
	sort.Slice(order, func(a, b int) bool { return marks[order[a]].Index < marks[order[b]].Index })

	for _, i := range order {
		m := &marks[i]
		if m.Index == 0 {
			m.Elapsed = nil
			m.ElapsedDisplay = ""
			continue
		}
		refTime, known := circuitReference(stage, marks, m.Index)
		if !known || m.Timestamp.Before(refTime) {
			// Unscorable: no reference yet, or the chain inverted under a
			// late backfill. Flagged so the audit trail explains the
			// missing elapsed.
			m.Elapsed = nil
			m.ElapsedDisplay = ""
			m.OutOfSequence = true
			continue
		}
		setElapsed(m, m.Timestamp.Sub(refTime))
	}
	return marks
}
