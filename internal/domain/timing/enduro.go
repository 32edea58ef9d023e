package timing

import (
	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/internal/domain/policy"
	"github.com/okian/chicane/internal/domain/types"
)

// evaluateEnduro scores a special-segment mark. Each segment is scored
// independently against its own start reference; stage-level aggregation
// is a downstream concern.
func (c *Calculator) evaluateEnduro(stage types.StageView, marks []model.ComputedTime, p model.RawPassage, syncOrigin string) Evaluation {
	seg, ok := stage.Segment(p.SegmentID)
	if !ok {
		// The validator guards segment membership; reaching here means the
		// stage configuration changed under us. Abort this event only.
		return Evaluation{Outcome: model.Outcome{
			PassageID: p.PassageID,
			Status:    model.StatusFailed,
			Detail:    "segment not configured: " + p.SegmentID,
		}}
	}
	index := seg.Index

	if occ := acceptedAt(marks, index); occ != nil {
		if p.Timestamp.Before(occ.Timestamp) {
			return c.commitEnduro(stage, seg, p, syncOrigin, occ)
		}
		return discardRow(p, index, model.DiscardDuplicate, syncOrigin)
	}

	if dec := c.deduper.Decide(stage, p, lastAcceptedOfKind(marks, p.Kind)); dec.Suppress {
		return discardRow(p, index, dec.Reason, syncOrigin)
	}

	return c.commitEnduro(stage, seg, p, syncOrigin, nil)
}

func (c *Calculator) commitEnduro(stage types.StageView, seg types.SegmentView, p model.RawPassage, syncOrigin string, supersedes *model.ComputedTime) Evaluation {
	if p.Timestamp.Before(seg.Start) {
		return discardRow(p, seg.Index, model.DiscardCausality, syncOrigin)
	}

	rec := baseRecord(p, seg.Index, syncOrigin)
	setElapsed(&rec, p.Timestamp.Sub(seg.Start))
	// Penalty seconds ride alongside the raw elapsed so they can be
	// audited or reversed later; they are never folded into it.
	rec.PenaltySeconds = policy.PenaltyFor(seg, p.Timestamp)
	if supersedes != nil {
		rec.Supersedes = supersedes.PassageID
	}

	ev := Evaluation{
		Outcome: model.Outcome{PassageID: p.PassageID, Status: model.StatusAccepted},
		Record:  &rec,
	}
	if supersedes != nil {
		ev.SupersededPassageID = supersedes.PassageID
		ev.Outcome.Superseded = supersedes.PassageID
	}
	return ev
}
