package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// value finds a gathered sample by metric name and label values.
func value(reg *prometheus.Registry, name string, labels map[string]string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func TestManager(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		m := New()
		reg := m.Registry()

		Convey("When frames are observed", func() {
			m.ObserveFrame(true, 4*time.Millisecond)
			m.ObserveFrame(true, 6*time.Millisecond)
			m.ObserveFrame(false, time.Millisecond)

			Convey("Then they are counted by hand presence", func() {
				So(value(reg, "lingyi_frames_total", map[string]string{"hand": "present"}), ShouldEqual, 2.0)
				So(value(reg, "lingyi_frames_total", map[string]string{"hand": "absent"}), ShouldEqual, 1.0)
				So(value(reg, "lingyi_frame_duration_seconds", nil), ShouldEqual, 3.0)
			})
		})

		Convey("When edges are recorded", func() {
			m.Edge("pinching", "start")
			m.Edge("pinching", "hold")
			m.Edge("pinching", "hold")
			m.Edge("pinching", "end")

			Convey("Then holds are not counted", func() {
				So(value(reg, "lingyi_gesture_edges_total", map[string]string{"gesture": "pinching", "phase": "start"}), ShouldEqual, 1.0)
				So(value(reg, "lingyi_gesture_edges_total", map[string]string{"gesture": "pinching", "phase": "hold"}), ShouldEqual, 0.0)
			})
		})

		Convey("When gauges are set", func() {
			m.SetActiveSessions(true)
			m.SetEnabled(true)
			m.SetSubscribers(3)

			Convey("Then they report the latest value", func() {
				So(value(reg, "lingyi_active_sessions", nil), ShouldEqual, 1.0)
				So(value(reg, "lingyi_enabled", nil), ShouldEqual, 1.0)
				So(value(reg, "lingyi_state_subscribers", nil), ShouldEqual, 3.0)
			})
		})

		Convey("When the handler is scraped", func() {
			m.Action("click")
			m.SinkError()

			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
			body, _ := io.ReadAll(rec.Body)

			Convey("Then it serves the text exposition", func() {
				So(rec.Code, ShouldEqual, 200)
				So(strings.Contains(string(body), `lingyi_actions_total{kind="click"} 1`), ShouldBeTrue)
				So(strings.Contains(string(body), "lingyi_sink_errors_total 1"), ShouldBeTrue)
			})
		})
	})
}

func TestManager_Options(t *testing.T) {
	Convey("Given a shared registry and a namespace", t, func() {
		reg := prometheus.NewRegistry()
		m := New(WithRegistry(reg), WithNamespace("test"), WithHistogramBuckets([]float64{1}))

		Convey("Then metrics land on that registry under the namespace", func() {
			So(m.Registry(), ShouldEqual, reg)
			m.InvalidFrame()
			So(value(reg, "test_invalid_frames_total", nil), ShouldEqual, 1.0)
		})
	})
}
