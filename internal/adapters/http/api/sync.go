package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/chicane/internal/domain/model"
)

// syncRequest mirrors the OpenAPI schema for POST /sync: a device
// flushing its offline queue.
type syncRequest struct {
	DeviceID string           `json:"device_id"`
	Passages []passageRequest `json:"passages"`
}

// SyncHandler handles offline batch uploads.
type SyncHandler struct {
	deps Dependencies
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(deps Dependencies) *SyncHandler {
	return &SyncHandler{deps: deps}
}

// HandlePostSync handles POST /sync requests. The batch never fails as a
// whole: malformed passages are reported per-event in the merge report,
// and a retried submission is safe to replay.
func (h *SyncHandler) HandlePostSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing device_id"))
		return
	}

	// Partial success: malformed passages get their own failed outcome
	// instead of failing the batch.
	batch := make([]model.RawPassage, 0, len(req.Passages))
	var malformed []model.Outcome
	for _, pr := range req.Passages {
		if err := pr.validate(); err != nil {
			malformed = append(malformed, model.Outcome{
				PassageID: pr.PassageID,
				Status:    model.StatusFailed,
				Detail:    err.Error(),
			})
			continue
		}
		batch = append(batch, pr.toModel())
	}

	report := h.deps.SubmitBatch(r.Context(), req.DeviceID, batch)
	for _, o := range malformed {
		report.Add(o)
	}
	writeJSON(w, http.StatusOK, report)
}
