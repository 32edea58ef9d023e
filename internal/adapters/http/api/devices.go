package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/chicane/internal/domain/model"
)

// heartbeatRequest mirrors the collector self-report shape: identifier,
// pending-reading count, last local reading time, battery and
// connectivity.
type heartbeatRequest struct {
	DeviceID        string `json:"device_id"`
	PendingReadings int    `json:"pending_readings"`
	LastReadingAt   string `json:"last_reading_at,omitempty"` // RFC3339
	BatteryPercent  int    `json:"battery_percent"`
	Online          bool   `json:"online"`
}

// DevicesHandler exposes the device telemetry surface.
type DevicesHandler struct {
	deps Dependencies
}

// NewDevicesHandler creates a new devices handler.
func NewDevicesHandler(deps Dependencies) *DevicesHandler {
	return &DevicesHandler{deps: deps}
}

// HandlePostHeartbeat handles POST /heartbeat requests.
func (h *DevicesHandler) HandlePostHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing device_id"))
		return
	}
	hb := model.Heartbeat{
		DeviceID:        req.DeviceID,
		PendingReadings: req.PendingReadings,
		BatteryPercent:  req.BatteryPercent,
		Online:          req.Online,
	}
	if req.LastReadingAt != "" {
		t, err := time.Parse(time.RFC3339Nano, req.LastReadingAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid last_reading_at; must be RFC3339"))
			return
		}
		hb.LastReadingAt = t.UTC()
	}
	writeJSON(w, http.StatusOK, h.deps.RecordHeartbeat(hb))
}

// HandleGetDevice handles GET /devices/{device_id} requests.
func (h *DevicesHandler) HandleGetDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	deviceID := strings.TrimPrefix(r.URL.Path, "/devices/")
	if deviceID == "" || strings.Contains(deviceID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing device id"))
		return
	}
	hb, ok := h.deps.Heartbeat(deviceID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", errors.New("device not seen"))
		return
	}
	writeJSON(w, http.StatusOK, hb)
}

// HandleListDevices handles GET /devices requests.
func (h *DevicesHandler) HandleListDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Devices())
}
