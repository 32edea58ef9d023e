// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// EnqueuePassage pushes a live passage for async processing.
	// Returns false on backpressure.
	EnqueuePassage(ctx context.Context, p model.RawPassage) bool

	// SubmitBatch merges a device's offline queue synchronously.
	SubmitBatch(ctx context.Context, deviceID string, passages []model.RawPassage) model.MergeReport

	// Read operations expose committed timelines.
	Timeline(ctx context.Context, stageID string, riderNumber int) ([]model.ComputedTime, error)
	StageRecords(ctx context.Context, stageID string) ([]model.ComputedTime, error)

	// Device telemetry surface.
	RecordHeartbeat(hb model.Heartbeat) model.Heartbeat
	Heartbeat(deviceID string) (model.Heartbeat, bool)
	Devices() []model.Heartbeat
	PendingCount(deviceID string) int
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	passagesHandler *PassagesHandler
	syncHandler     *SyncHandler
	timelineHandler *TimelineHandler
	devicesHandler  *DevicesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		passagesHandler: NewPassagesHandler(deps),
		syncHandler:     NewSyncHandler(deps),
		timelineHandler: NewTimelineHandler(deps),
		devicesHandler:  NewDevicesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/passages", MetricsMiddleware(s.passagesHandler.HandlePostPassage, "passages"))
	mux.HandleFunc("/sync", MetricsMiddleware(s.syncHandler.HandlePostSync, "sync"))
	mux.HandleFunc("/timeline", MetricsMiddleware(s.timelineHandler.HandleGetTimeline, "timeline"))
	mux.HandleFunc("/heartbeat", MetricsMiddleware(s.devicesHandler.HandlePostHeartbeat, "heartbeat"))
	mux.HandleFunc("/devices", MetricsMiddleware(s.devicesHandler.HandleListDevices, "devices"))
	mux.HandleFunc("/devices/", MetricsMiddleware(s.devicesHandler.HandleGetDevice, "device"))
}

// passageRequest mirrors the OpenAPI schema for a single raw passage.
type passageRequest struct {
	PassageID string `json:"passage_id"`
	DeviceID  string `json:"device_id"`
	Rider     int    `json:"rider"`
	StageID   string `json:"stage_id"`
	SegmentID string `json:"segment_id,omitempty"`
	Lap       int    `json:"lap,omitempty"`
	Kind      string `json:"kind"`
	TS        string `json:"ts"`
}

func (p passageRequest) validate() error {
	switch {
	case strings.TrimSpace(p.PassageID) == "":
		return errors.New("missing passage_id")
	case strings.TrimSpace(p.DeviceID) == "":
		return errors.New("missing device_id")
	case p.Rider <= 0:
		return errors.New("rider must be positive")
	case strings.TrimSpace(p.StageID) == "":
		return errors.New("missing stage_id")
	case strings.TrimSpace(p.Kind) == "":
		return errors.New("missing kind")
	case strings.TrimSpace(p.TS) == "":
		return errors.New("missing ts")
	}
	if !types.ReadingKind(p.Kind).Valid() {
		return errors.New("unknown kind; must be passage, checkpoint or manual")
	}
	if _, err := time.Parse(time.RFC3339Nano, p.TS); err != nil {
		return errors.New("invalid ts; must be RFC3339")
	}
	return nil
}

func (p passageRequest) toModel() model.RawPassage {
	ts, _ := time.Parse(time.RFC3339Nano, p.TS)
	return model.RawPassage{
		PassageID:   p.PassageID,
		DeviceID:    p.DeviceID,
		RiderNumber: p.Rider,
		StageID:     p.StageID,
		SegmentID:   p.SegmentID,
		Lap:         p.Lap,
		Kind:        types.ReadingKind(p.Kind),
		Timestamp:   ts.UTC(),
	}
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
