package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// find returns the first metric of the named family in reg.
func find(reg *prometheus.Registry, name string) *dto.Metric {
	families, err := reg.Gather()
	So(err, ShouldBeNil)
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0]
		}
	}
	return nil
}

func TestManagerCreation(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(reg),
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithHistogramBuckets([]float64{1, 10}),
			WithConstLabels(map[string]string{"instance": "a"}),
		)

		Convey("Metrics use the configured names and labels", func() {
			m.sessionsCreated.Inc()
			metric := find(reg, "test_unit_sessions_created_total")
			So(metric, ShouldNotBeNil)
			So(metric.GetCounter().GetValue(), ShouldEqual, 1)
			So(metric.GetLabel()[0].GetName(), ShouldEqual, "instance")
		})

		Convey("Histograms use the configured buckets", func() {
			m.renderLatency.WithLabelValues("map").Observe(5)
			metric := find(reg, "test_unit_render_latency_milliseconds")
			So(metric, ShouldNotBeNil)
			So(len(metric.GetHistogram().GetBucket()), ShouldEqual, 2)
		})

		Convey("A second manager on the same registry panics", func() {
			So(func() { NewManager(WithPrometheusRegistry(reg), WithNamespace("test"), WithSubsystem("unit")) }, ShouldPanic)
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global registry", t, func() {
		reg := GetRegistry()

		Convey("Dataset gauges are set", func() {
			UpdateDataset(780, 5, 10)
			So(find(reg, "happymap_dashboard_dataset_rows").GetGauge().GetValue(), ShouldEqual, 780)
			So(find(reg, "happymap_dashboard_dataset_regions").GetGauge().GetValue(), ShouldEqual, 10)
		})

		Convey("Frame counters accumulate", func() {
			before := find(reg, "happymap_dashboard_frames_dropped_total")
			var start float64
			if before != nil {
				start = before.GetCounter().GetValue()
			}
			RecordFrameDropped()
			RecordFrameDropped()
			So(find(reg, "happymap_dashboard_frames_dropped_total").GetCounter().GetValue(), ShouldEqual, start+2)
		})

		Convey("Recorders do not panic", func() {
			So(func() {
				RecordRowsCoerced(3)
				RecordRowsSkipped(1)
				RecordRedraw("year")
				RecordRenderLatency("scatter", 1.2)
				RecordHighlight("map")
				RecordPlaybackTick()
				RecordExport()
				UpdateSessionsActive(2)
				RecordSessionCreated()
				RecordSessionsEvicted(1)
				RecordSessionRejected()
				RecordHTTPRequest("/api/controls", "GET", "200")
				RecordHTTPRequestDuration("/api/controls", "GET", "200", 3)
				RecordFrameEnqueued()
				RecordFrameDelivered(2)
				UpdateWebSocketClients(1)
				UpdateQueueSize(4)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.4)
				UpdateWorkerActiveCount(2)
				RecordWorkerProcessingLatency(0.5)
				RecordWorkerError()
				RecordErrorByComponent("queue", "full")
				RecordErrorByEndpoint("/api/sessions", "POST", "capacity")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})
	})
}
