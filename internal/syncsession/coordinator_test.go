package syncsession

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// scriptedMerger returns a canned outcome per passage.
type scriptedMerger struct {
	outcome func(p model.RawPassage) model.Outcome
	batches [][]model.RawPassage
	syncIDs []string
}

func (m *scriptedMerger) Merge(_ context.Context, batch []model.RawPassage, originSyncID string) model.MergeReport {
	cp := make([]model.RawPassage, len(batch))
	copy(cp, batch)
	m.batches = append(m.batches, cp)
	m.syncIDs = append(m.syncIDs, originSyncID)

	report := model.MergeReport{SyncID: originSyncID}
	for _, p := range batch {
		report.Add(m.outcome(p))
	}
	return report
}

func allAccepted(p model.RawPassage) model.Outcome {
	return model.Outcome{PassageID: p.PassageID, Status: model.StatusAccepted}
}

func TestSubmitBatch(t *testing.T) {
	convey.Convey("Given a coordinator over a fake clock", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClock()
		merger := &scriptedMerger{outcome: allAccepted}
		c := New(merger, WithClock(clock))

		base := time.Date(2026, 6, 14, 10, 0, 0, 0, time.UTC)
		batch := []model.RawPassage{
			{PassageID: "p-1", StageID: "stage-1", RiderNumber: 7, Timestamp: base},
			{PassageID: "p-2", StageID: "stage-1", RiderNumber: 7, Timestamp: base.Add(90 * time.Second)},
		}

		convey.Convey("When a device flushes its queue", func() {
			report := c.SubmitBatch(ctx, "decoder-1", batch)

			convey.Convey("Then the batch reaches the merger under a fresh sync id", func() {
				convey.So(merger.batches, convey.ShouldHaveLength, 1)
				convey.So(merger.syncIDs[0], convey.ShouldNotBeEmpty)
				convey.So(report.SyncID, convey.ShouldEqual, merger.syncIDs[0])
				convey.So(report.Accepted, convey.ShouldEqual, 2)
			})

			convey.Convey("And empty device ids are filled from the session", func() {
				for _, p := range merger.batches[0] {
					convey.So(p.DeviceID, convey.ShouldEqual, "decoder-1")
				}
			})

			convey.Convey("And the device telemetry is stamped with the clock", func() {
				hb, ok := c.Heartbeat("decoder-1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(hb.Online, convey.ShouldBeTrue)
				convey.So(hb.ReportedAt.Equal(clock.Now()), convey.ShouldBeTrue)
				convey.So(hb.LastReadingAt.Equal(base.Add(90*time.Second)), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a passage carries its own device id", func() {
			own := batch
			own[0].DeviceID = "decoder-2"
			c.SubmitBatch(ctx, "decoder-1", own)

			convey.So(merger.batches[0][0].DeviceID, convey.ShouldEqual, "decoder-2")
			convey.So(merger.batches[0][1].DeviceID, convey.ShouldEqual, "decoder-1")
		})

		convey.Convey("When two submissions use distinct sync ids", func() {
			c.SubmitBatch(ctx, "decoder-1", batch)
			c.SubmitBatch(ctx, "decoder-1", batch)

			convey.So(merger.syncIDs, convey.ShouldHaveLength, 2)
			convey.So(merger.syncIDs[0], convey.ShouldNotEqual, merger.syncIDs[1])
		})
	})
}

func TestPendingAccounting(t *testing.T) {
	convey.Convey("Given a device that reported a backlog", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClock()
		merger := &scriptedMerger{outcome: allAccepted}
		c := New(merger, WithClock(clock))

		c.RecordHeartbeat(model.Heartbeat{DeviceID: "decoder-1", PendingReadings: 5, Online: true})
		convey.So(c.PendingCount("decoder-1"), convey.ShouldEqual, 5)

		base := time.Date(2026, 6, 14, 10, 0, 0, 0, time.UTC)
		batch := []model.RawPassage{
			{PassageID: "p-1", Timestamp: base},
			{PassageID: "p-2", Timestamp: base.Add(time.Minute)},
		}

		convey.Convey("When a batch drains part of the backlog", func() {
			c.SubmitBatch(ctx, "decoder-1", batch)

			convey.Convey("Then the pending count drops by the acknowledged events", func() {
				convey.So(c.PendingCount("decoder-1"), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When failed events stay pending", func() {
			merger.outcome = func(p model.RawPassage) model.Outcome {
				if p.PassageID == "p-2" {
					return model.Outcome{PassageID: p.PassageID, Status: model.StatusFailed, Detail: "storage"}
				}
				return allAccepted(p)
			}
			c.SubmitBatch(ctx, "decoder-1", batch)

			convey.Convey("Then only definitive outcomes are acknowledged", func() {
				convey.So(c.PendingCount("decoder-1"), convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When more is acknowledged than was reported", func() {
			c.SubmitBatch(ctx, "decoder-1", batch)
			c.SubmitBatch(ctx, "decoder-1", batch)
			c.SubmitBatch(ctx, "decoder-1", batch)

			convey.Convey("Then the pending count floors at zero", func() {
				convey.So(c.PendingCount("decoder-1"), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestDevices(t *testing.T) {
	convey.Convey("Given heartbeats from several devices", t, func() {
		clock := clockwork.NewFakeClock()
		c := New(&scriptedMerger{outcome: allAccepted}, WithClock(clock))

		c.RecordHeartbeat(model.Heartbeat{DeviceID: "decoder-1", BatteryPercent: 80, Online: true})
		clock.Advance(time.Minute)
		c.RecordHeartbeat(model.Heartbeat{DeviceID: "decoder-2", BatteryPercent: 45, Online: true})

		convey.Convey("When listing devices", func() {
			devices := c.Devices()

			convey.Convey("Then every device's last status is present", func() {
				convey.So(devices, convey.ShouldHaveLength, 2)
				byID := make(map[string]model.Heartbeat, len(devices))
				for _, hb := range devices {
					byID[hb.DeviceID] = hb
				}
				convey.So(byID["decoder-1"].BatteryPercent, convey.ShouldEqual, 80)
				convey.So(byID["decoder-2"].BatteryPercent, convey.ShouldEqual, 45)
				convey.So(byID["decoder-2"].ReportedAt.Sub(byID["decoder-1"].ReportedAt), convey.ShouldEqual, time.Minute)
			})
		})

		convey.Convey("When asking for a device never seen", func() {
			_, ok := c.Heartbeat("decoder-9")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}
