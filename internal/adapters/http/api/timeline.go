package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// TimelineHandler exposes committed timelines.
type TimelineHandler struct {
	deps Dependencies
}

// NewTimelineHandler creates a new timeline handler.
func NewTimelineHandler(deps Dependencies) *TimelineHandler {
	return &TimelineHandler{deps: deps}
}

// HandleGetTimeline handles GET /timeline?stage=<id>[&rider=<n>].
// With a rider it returns that rider's marks; without, the whole stage
// stream consumed by standings computation. Discarded audit rows are
// included; standings consumers filter on the discarded flag.
func (h *TimelineHandler) HandleGetTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stageID := strings.TrimSpace(r.URL.Query().Get("stage"))
	if stageID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing stage"))
		return
	}

	riderParam := strings.TrimSpace(r.URL.Query().Get("rider"))
	if riderParam == "" {
		records, err := h.deps.StageRecords(r.Context(), stageID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err)
			return
		}
		writeJSON(w, http.StatusOK, records)
		return
	}

	rider, err := strconv.Atoi(riderParam)
	if err != nil || rider <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("rider must be a positive integer"))
		return
	}
	records, err := h.deps.Timeline(r.Context(), stageID, rider)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
