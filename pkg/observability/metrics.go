// Package observability provides Prometheus instrumentation for flow
// execution and the serving surface.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the engine and adapters report into.
type Metrics struct {
	RenderPasses   prometheus.Counter
	StepErrors     *prometheus.CounterVec
	Retrievals     *prometheus.CounterVec
	ModelLatency   prometheus.Histogram
	SessionsSaved  prometheus.Counter
	SessionsLoaded prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg. Pass
// prometheus.NewRegistry() in tests to avoid default-registry collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RenderPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowdeck",
			Name:      "render_passes_total",
			Help:      "Number of flow render passes executed.",
		}),
		StepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowdeck",
			Name:      "step_errors_total",
			Help:      "Number of step perform errors, by step name.",
		}, []string{"step"}),
		Retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowdeck",
			Name:      "retrievals_total",
			Help:      "Number of text extractions, by method and outcome.",
		}, []string{"method", "outcome"}),
		ModelLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flowdeck",
			Name:      "model_invoke_seconds",
			Help:      "Chat model invocation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		SessionsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowdeck",
			Name:      "sessions_saved_total",
			Help:      "Number of session snapshots written.",
		}),
		SessionsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowdeck",
			Name:      "sessions_loaded_total",
			Help:      "Number of session snapshots loaded.",
		}),
	}
	reg.MustRegister(
		m.RenderPasses,
		m.StepErrors,
		m.Retrievals,
		m.ModelLatency,
		m.SessionsSaved,
		m.SessionsLoaded,
	)
	return m
}
