// Package metrics exposes Prometheus metrics for the gesture loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the gesture metrics and the registry they live on.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	frames         *prometheus.CounterVec
	invalidFrames  prometheus.Counter
	frameLatency   prometheus.Histogram
	edges          *prometheus.CounterVec
	actions        *prometheus.CounterVec
	sinkErrors     prometheus.Counter
	activeSessions prometheus.Gauge
	enabled        prometheus.Gauge
	subscribers    prometheus.Gauge
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets the frame latency buckets, in seconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRegistry registers the metrics on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// New creates a Manager on its own registry unless WithRegistry is given.
func New(opts ...Option) *Manager {
	m := &Manager{
		namespace: "lingyi",
		buckets:   []float64{.001, .0025, .005, .01, .02, .033, .05, .1, .25},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(m.registry)

	m.frames = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "frames_total",
		Help:      "Frames processed, by whether a hand was present.",
	}, []string{"hand"})

	m.invalidFrames = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "invalid_frames_total",
		Help:      "Frames whose landmarks could not be classified.",
	})

	m.frameLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "frame_duration_seconds",
		Help:      "Time spent classifying and dispatching one frame.",
		Buckets:   m.buckets,
	})

	m.edges = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "gesture_edges_total",
		Help:      "Gesture start and end transitions.",
	}, []string{"gesture", "phase"})

	m.actions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "actions_total",
		Help:      "Dispatched input actions by kind.",
	}, []string{"kind"})

	m.sinkErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "sink_errors_total",
		Help:      "Input sink calls that returned an error.",
	})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "active_sessions",
		Help:      "Resize, drag or scroll sessions in progress (0 or 1).",
	})

	m.enabled = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "enabled",
		Help:      "1 while gesture input is enabled.",
	})

	m.subscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "state_subscribers",
		Help:      "Connected gesture state stream clients.",
	})

	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFrame counts one frame and its processing time.
func (m *Manager) ObserveFrame(handPresent bool, d time.Duration) {
	label := "absent"
	if handPresent {
		label = "present"
	}
	m.frames.WithLabelValues(label).Inc()
	m.frameLatency.Observe(d.Seconds())
}

// InvalidFrame counts a frame rejected by the classifier.
func (m *Manager) InvalidFrame() {
	m.invalidFrames.Inc()
}

// Edge counts a gesture transition. Holds are not counted.
func (m *Manager) Edge(gesture, phase string) {
	if phase == "hold" {
		return
	}
	m.edges.WithLabelValues(gesture, phase).Inc()
}

// Action counts a dispatched action.
func (m *Manager) Action(kind string) {
	m.actions.WithLabelValues(kind).Inc()
}

// SinkError counts a failed sink call.
func (m *Manager) SinkError() {
	m.sinkErrors.Inc()
}

// SetActiveSessions records whether a session is in progress.
func (m *Manager) SetActiveSessions(busy bool) {
	if busy {
		m.activeSessions.Set(1)
	} else {
		m.activeSessions.Set(0)
	}
}

// SetEnabled mirrors the enabled toggle.
func (m *Manager) SetEnabled(enabled bool) {
	if enabled {
		m.enabled.Set(1)
	} else {
		m.enabled.Set(0)
	}
}

// SetSubscribers records the number of stream clients.
func (m *Manager) SetSubscribers(n int) {
	m.subscribers.Set(float64(n))
}
