package api

import (
	"encoding/json"
	"net/http"
)

// PassagesHandler handles live passage submissions.
type PassagesHandler struct {
	deps Dependencies
}

// NewPassagesHandler creates a new passages handler.
func NewPassagesHandler(deps Dependencies) *PassagesHandler {
	return &PassagesHandler{deps: deps}
}

// HandlePostPassage handles POST /passages requests. Live passages are
// acknowledged with 202 and scored asynchronously; duplicates and policy
// discards surface later on the timeline, not here.
func (h *PassagesHandler) HandlePostPassage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req passageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if ok := h.deps.EnqueuePassage(r.Context(), req.toModel()); !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
