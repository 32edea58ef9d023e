package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with empty overrides", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should fall back to defaults", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording passage outcomes", func() {
			So(func() {
				RecordPassageAccepted()
				RecordPassageRejected("unknown_rider")
				RecordPassageDiscarded("duplicate")
				RecordPassageSuperseded()
				RecordPassageFailed()
			}, ShouldNotPanic)
		})

		Convey("When recording merge metrics", func() {
			So(func() {
				RecordMergeBatch(250)
				RecordMergeLatency(12.5)
				RecordSyncBatch(500)
			}, ShouldNotPanic)
		})

		Convey("When recording device telemetry", func() {
			So(func() {
				UpdateDevicePending("decoder-1", 120)
				UpdateDevicePending("decoder-2", 0)
			}, ShouldNotPanic)
		})

		Convey("When recording store metrics", func() {
			So(func() {
				UpdateStoreShardCount(8)
				RecordStoreUpdateLatency(2.0)
				UpdateTimelineRecords(100_000)
				UpdateTrackedRiders(200)
			}, ShouldNotPanic)
		})

		Convey("When recording queue metrics", func() {
			So(func() {
				UpdateQueueSize(1000)
				UpdateQueueCapacity(100_000)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError("queue_full")
			}, ShouldNotPanic)
		})

		Convey("When recording worker metrics", func() {
			So(func() {
				UpdateWorkerCount(8)
				RecordWorkerProcessingLatency(5.0)
				RecordWorkerError()
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("/passages", "POST", "202")
				RecordHTTPRequestDuration("/timeline", "GET", "200", 4.0)
			}, ShouldNotPanic)
		})

		Convey("When using edge values", func() {
			So(func() {
				UpdateQueueSize(0)
				UpdateQueueSize(-1)
				UpdateTimelineRecords(10_000_000)
				RecordMergeLatency(0.0)
				RecordHTTPRequest("", "", "")
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsRegistry(t *testing.T) {
	Convey("Given the global registry", t, func() {
		Convey("When gathering after recording", func() {
			RecordPassageAccepted()

			families, err := GetRegistry().Gather()

			Convey("Then the passage counters are exported", func() {
				So(err, ShouldBeNil)

				found := false
				for _, mf := range families {
					if mf.GetName() == "chicane_timing_passages_accepted_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		done := make(chan bool, 10)

		for i := 0; i < 10; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					RecordPassageAccepted()
					UpdateQueueSize(1000 + j)
					RecordMergeLatency(float64(j))
					RecordHTTPRequest("/passages", "POST", "202")
				}
				done <- true
			}()
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		Convey("Then recording stays race free", func() {
			So(true, ShouldBeTrue)
		})
	})
}
