package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func family(reg *prometheus.Registry, name string) *dto.MetricFamily {
	families, err := reg.Gather()
	So(err, ShouldBeNil)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestNewManager(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(reg),
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithHistogramBuckets([]float64{1, 10}),
			WithConstLabels(map[string]string{"env": "test"}),
		)
		So(m, ShouldNotBeNil)

		Convey("When a counter is incremented", func() {
			m.deliveriesApplied.Inc()
			m.deliveriesApplied.Inc()

			Convey("Then it is exported with the configured names and labels", func() {
				f := family(reg, "test_unit_deliveries_applied_total")
				So(f, ShouldNotBeNil)
				So(f.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 2)
				So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
			})
		})

		Convey("When a histogram is observed", func() {
			m.engineLatency.Observe(5)

			Convey("Then it uses the configured buckets", func() {
				f := family(reg, "test_unit_engine_latency_milliseconds")
				So(f, ShouldNotBeNil)
				So(f.GetMetric()[0].GetHistogram().GetBucket(), ShouldHaveLength, 2)
				So(f.GetMetric()[0].GetHistogram().GetSampleCount(), ShouldEqual, 1)
			})
		})

		Convey("When empty options are given", func() {
			d := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithNamespace(""), WithHistogramBuckets(nil))

			Convey("Then the defaults stay", func() {
				So(d.namespace, ShouldEqual, "cricscore")
				So(d.histogramBuckets, ShouldNotBeEmpty)
			})
		})
	})
}

func TestPackageRecorders(t *testing.T) {
	Convey("Given the global registry", t, func() {
		reg := GetRegistry()
		So(reg, ShouldNotBeNil)

		Convey("When the package recorders are called", func() {
			So(func() {
				RecordDeliveryApplied()
				RecordDeliveryRejected("invalid_runs")
				RecordDeliveryDuplicate()
				RecordWicket("BOWLED")
				RecordEngineLatency(time.Millisecond)
				RecordMatchCreated()
				RecordMatchCompleted()
				RecordUndo()
				UpdateLiveMatches(3)
				RecordHTTPRequest("/matches", "POST", "201")
				RecordHTTPRequestDuration("/matches", "POST", "201", 1.5)
				UpdateHistorySize(4)
				RecordHistoryLatency("memory", "save", time.Millisecond)
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(2)
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessingLatency(2 * time.Millisecond)
				RecordWorkerError()
				RecordMatchArchived()
				UpdateLiveClients(5)
				RecordLiveMessageDropped()
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.5)
				RecordErrorByComponent("repository", "sqlite_insert")
			}, ShouldNotPanic)

			Convey("Then the values are gathered", func() {
				f := family(reg, "cricscore_scorebook_live_matches")
				So(f, ShouldNotBeNil)
				So(f.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 3)

				f = family(reg, "cricscore_scorebook_deliveries_rejected_total")
				So(f, ShouldNotBeNil)
				So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "invalid_runs")

				f = family(reg, "cricscore_scorebook_system_goroutines")
				So(f, ShouldNotBeNil)
				So(f.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 12)
			})
		})
	})
}
