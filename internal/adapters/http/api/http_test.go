package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/chicane/internal/domain/model"
)

// stubDeps is a scriptable Dependencies implementation.
type stubDeps struct {
	enqueueOK bool
	enqueued  []model.RawPassage

	report  model.MergeReport
	batches [][]model.RawPassage

	timeline []model.ComputedTime
	timeErr  error

	heartbeats map[string]model.Heartbeat
}

func newStubDeps() *stubDeps {
	return &stubDeps{
		enqueueOK:  true,
		heartbeats: make(map[string]model.Heartbeat),
	}
}

func (s *stubDeps) EnqueuePassage(_ context.Context, p model.RawPassage) bool {
	if s.enqueueOK {
		s.enqueued = append(s.enqueued, p)
	}
	return s.enqueueOK
}

func (s *stubDeps) SubmitBatch(_ context.Context, deviceID string, passages []model.RawPassage) model.MergeReport {
	s.batches = append(s.batches, passages)
	report := s.report
	if report.SyncID == "" {
		report.SyncID = "sync-test"
	}
	for _, p := range passages {
		report.Add(model.Outcome{PassageID: p.PassageID, Status: model.StatusAccepted})
	}
	return report
}

func (s *stubDeps) Timeline(_ context.Context, _ string, _ int) ([]model.ComputedTime, error) {
	return s.timeline, s.timeErr
}

func (s *stubDeps) StageRecords(_ context.Context, _ string) ([]model.ComputedTime, error) {
	return s.timeline, s.timeErr
}

func (s *stubDeps) RecordHeartbeat(hb model.Heartbeat) model.Heartbeat {
	hb.ReportedAt = time.Date(2026, 6, 14, 10, 0, 0, 0, time.UTC)
	s.heartbeats[hb.DeviceID] = hb
	return hb
}

func (s *stubDeps) Heartbeat(deviceID string) (model.Heartbeat, bool) {
	hb, ok := s.heartbeats[deviceID]
	return hb, ok
}

func (s *stubDeps) Devices() []model.Heartbeat {
	out := make([]model.Heartbeat, 0, len(s.heartbeats))
	for _, hb := range s.heartbeats {
		out = append(out, hb)
	}
	return out
}

func (s *stubDeps) PendingCount(deviceID string) int {
	return s.heartbeats[deviceID].PendingReadings
}

// GetStats satisfies StatsProvider.
func (s *stubDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(deps *stubDeps) *http.ServeMux {
	mux := http.NewServeMux()
	NewServer(deps, deps).Register(context.Background(), mux)
	return mux
}

func validBody() map[string]any {
	return map[string]any{
		"passage_id": "p-1",
		"device_id":  "decoder-1",
		"rider":      7,
		"stage_id":   "stage-1",
		"kind":       "passage",
		"ts":         "2026-06-14T10:01:35.450Z",
	}
}

func doJSON(mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestPostPassage(t *testing.T) {
	convey.Convey("Given the passages endpoint", t, func() {
		deps := newStubDeps()
		mux := newTestMux(deps)

		convey.Convey("When posting a valid passage", func() {
			w := doJSON(mux, http.MethodPost, "/passages", validBody())

			convey.Convey("Then it is acknowledged and queued", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusAccepted)
				convey.So(deps.enqueued, convey.ShouldHaveLength, 1)
				convey.So(deps.enqueued[0].PassageID, convey.ShouldEqual, "p-1")
				convey.So(deps.enqueued[0].Timestamp.UTC().Hour(), convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When the body is not JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/passages", bytes.NewBufferString("{nope"))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When a field is missing", func() {
			body := validBody()
			delete(body, "ts")
			w := doJSON(mux, http.MethodPost, "/passages", body)

			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "missing ts")
		})

		convey.Convey("When the kind is unknown", func() {
			body := validBody()
			body["kind"] = "gps"
			w := doJSON(mux, http.MethodPost, "/passages", body)

			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When the queue is saturated", func() {
			deps.enqueueOK = false
			w := doJSON(mux, http.MethodPost, "/passages", validBody())

			convey.Convey("Then the caller is told to back off", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusTooManyRequests)
			})
		})

		convey.Convey("When using the wrong method", func() {
			w := doJSON(mux, http.MethodGet, "/passages", nil)
			convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPostSync(t *testing.T) {
	convey.Convey("Given the sync endpoint", t, func() {
		deps := newStubDeps()
		mux := newTestMux(deps)

		convey.Convey("When uploading a clean batch", func() {
			body := map[string]any{
				"device_id": "decoder-1",
				"passages":  []map[string]any{validBody()},
			}
			w := doJSON(mux, http.MethodPost, "/sync", body)

			convey.Convey("Then the merge report comes back", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				var report model.MergeReport
				convey.So(json.Unmarshal(w.Body.Bytes(), &report), convey.ShouldBeNil)
				convey.So(report.Accepted, convey.ShouldEqual, 1)
				convey.So(report.SyncID, convey.ShouldNotBeEmpty)
				convey.So(deps.batches, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the batch mixes valid and malformed passages", func() {
			bad := validBody()
			bad["ts"] = "yesterday"
			bad["passage_id"] = "p-bad"
			body := map[string]any{
				"device_id": "decoder-1",
				"passages":  []map[string]any{validBody(), bad},
			}
			w := doJSON(mux, http.MethodPost, "/sync", body)

			convey.Convey("Then the malformed one fails without sinking the batch", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				var report model.MergeReport
				convey.So(json.Unmarshal(w.Body.Bytes(), &report), convey.ShouldBeNil)
				convey.So(report.Accepted, convey.ShouldEqual, 1)
				convey.So(report.Failed, convey.ShouldEqual, 1)
				convey.So(deps.batches[0], convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the device id is missing", func() {
			w := doJSON(mux, http.MethodPost, "/sync", map[string]any{"passages": []map[string]any{}})
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGetTimeline(t *testing.T) {
	convey.Convey("Given the timeline endpoint", t, func() {
		deps := newStubDeps()
		elapsed := 95 * time.Second
		deps.timeline = []model.ComputedTime{{
			StageID:        "stage-1",
			RiderNumber:    7,
			Index:          1,
			PassageID:      "p-1",
			Elapsed:        &elapsed,
			ElapsedDisplay: "01:35.000",
		}}
		mux := newTestMux(deps)

		convey.Convey("When fetching a rider's timeline", func() {
			w := doJSON(mux, http.MethodGet, "/timeline?stage=stage-1&rider=7", nil)

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			var rows []model.ComputedTime
			convey.So(json.Unmarshal(w.Body.Bytes(), &rows), convey.ShouldBeNil)
			convey.So(rows, convey.ShouldHaveLength, 1)
			convey.So(rows[0].ElapsedDisplay, convey.ShouldEqual, "01:35.000")
		})

		convey.Convey("When fetching the whole stage", func() {
			w := doJSON(mux, http.MethodGet, "/timeline?stage=stage-1", nil)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("When the stage parameter is missing", func() {
			w := doJSON(mux, http.MethodGet, "/timeline", nil)
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When the rider parameter is not a number", func() {
			w := doJSON(mux, http.MethodGet, "/timeline?stage=stage-1&rider=abc", nil)
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestDeviceEndpoints(t *testing.T) {
	convey.Convey("Given the device telemetry endpoints", t, func() {
		deps := newStubDeps()
		mux := newTestMux(deps)

		convey.Convey("When posting a heartbeat", func() {
			body := map[string]any{
				"device_id":        "decoder-1",
				"pending_readings": 12,
				"battery_percent":  64,
				"online":           true,
				"last_reading_at":  "2026-06-14T09:59:00Z",
			}
			w := doJSON(mux, http.MethodPost, "/heartbeat", body)

			convey.Convey("Then the stamped record comes back", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				var hb model.Heartbeat
				convey.So(json.Unmarshal(w.Body.Bytes(), &hb), convey.ShouldBeNil)
				convey.So(hb.DeviceID, convey.ShouldEqual, "decoder-1")
				convey.So(hb.PendingReadings, convey.ShouldEqual, 12)
				convey.So(hb.ReportedAt.IsZero(), convey.ShouldBeFalse)
			})

			convey.Convey("And the device can be fetched back", func() {
				w := doJSON(mux, http.MethodGet, "/devices/decoder-1", nil)
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				var hb model.Heartbeat
				convey.So(json.Unmarshal(w.Body.Bytes(), &hb), convey.ShouldBeNil)
				convey.So(hb.BatteryPercent, convey.ShouldEqual, 64)
			})

			convey.Convey("And the device list includes it", func() {
				w := doJSON(mux, http.MethodGet, "/devices", nil)
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				var devices []model.Heartbeat
				convey.So(json.Unmarshal(w.Body.Bytes(), &devices), convey.ShouldBeNil)
				convey.So(devices, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the heartbeat has no device id", func() {
			w := doJSON(mux, http.MethodPost, "/heartbeat", map[string]any{"pending_readings": 3})
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When fetching a device never seen", func() {
			w := doJSON(mux, http.MethodGet, "/devices/ghost", nil)
			convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	convey.Convey("Given the operational endpoints", t, func() {
		deps := newStubDeps()
		mux := newTestMux(deps)

		convey.Convey("When probing health", func() {
			w := doJSON(mux, http.MethodGet, "/healthz", nil)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "ok")
		})

		convey.Convey("When scraping metrics", func() {
			w := doJSON(mux, http.MethodGet, "/metrics", nil)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("When fetching stats", func() {
			w := doJSON(mux, http.MethodGet, "/stats", nil)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "started")
		})
	})
}
