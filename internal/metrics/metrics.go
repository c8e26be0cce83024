// Package metrics exposes render pipeline and preview server metrics. All
// collectors are registered on an instance registry, never the global one.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "twigpreview"

// Metrics holds the preview collectors. It implements render.Observer.
type Metrics struct {
	registry *prometheus.Registry

	stageAttempts  *prometheus.CounterVec
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
	sessions       prometheus.Gauge
	messages       *prometheus.CounterVec
}

// New registers the collectors on registry. A nil registry gets a fresh one.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		stageAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_attempts_total",
			Help:      "Render attempts per fallback stage and outcome.",
		}, []string{"stage", "result"}),
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Completed pipeline runs by final stage and outcome.",
		}, []string{"stage", "result"}),
		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Wall time of one pipeline run.",
			Buckets:   DurationBuckets(),
		}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Open preview surface connections.",
		}),
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound preview messages by type.",
		}, []string{"type"}),
	}
}

// DurationBuckets covers sub-millisecond string renders up to slow includes.
func DurationBuckets() []float64 {
	return []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
}

// StageAttempted counts one stage attempt.
func (m *Metrics) StageAttempted(stage string, err error) {
	if m == nil {
		return
	}
	m.stageAttempts.WithLabelValues(stage, outcome(err == nil)).Inc()
}

// RenderCompleted records one pipeline run.
func (m *Metrics) RenderCompleted(stage string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(stage, outcome(ok)).Inc()
	m.renderDuration.Observe(elapsed.Seconds())
}

// ConnectionOpened and ConnectionClosed track live preview connections.
func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}

// MessageReceived counts an inbound message.
func (m *Metrics) MessageReceived(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.messages.WithLabelValues(kind).Inc()
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
