package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	AuthFailures     *prometheus.CounterVec
	Predictions      *prometheus.CounterVec
	ChatTurns        *prometheus.CounterVec
	ModelLatency     *prometheus.HistogramVec
	StoreConflicts   prometheus.Counter
	RateLimited      *prometheus.CounterVec
	UpstreamFailures *prometheus.CounterVec

	stages *latencyWindow
}

// NewMetrics registers the service instruments on reg. A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 60},
		}, []string{"route"}),
		AuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected requests by auth failure kind.",
		}, []string{"kind"}),
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Classifier predictions by pipeline and label.",
		}, []string{"pipeline", "label"}),
		ChatTurns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Chat turns by outcome.",
		}, []string{"outcome"}),
		ModelLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_model_latency_seconds",
			Help:      "Latency of remote chat model calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90, 180},
		}, []string{"provider"}),
		StoreConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_store_conflicts_total",
			Help:      "Conversation saves rejected because a concurrent writer won.",
		}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-user rate limiter.",
		}, []string{"route"}),
		UpstreamFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Chat model failures by provider and retryability.",
		}, []string{"provider", "retryable"}),
		stages: newLatencyWindow(256, nil),
	}
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil || m.stages == nil {
		return
	}
	m.stages.add(stage, d)
}

func (m *Metrics) ObserveIndicator(name string) {
	if m == nil || m.stages == nil {
		return
	}
	m.stages.count(name)
}

// SetStageTargets overrides the p95 budgets reported by SnapshotStages.
func (m *Metrics) SetStageTargets(targets map[string]time.Duration) {
	if m == nil || m.stages == nil {
		return
	}
	m.stages.setTargets(targets)
}

func (m *Metrics) SnapshotStages() StageSnapshot {
	if m == nil || m.stages == nil {
		return StageSnapshot{GeneratedAt: time.Now().UTC()}
	}
	return m.stages.snapshot()
}

// MetricsHandler exposes g, or the default registry when g is nil.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
