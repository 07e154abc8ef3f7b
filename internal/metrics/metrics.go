// Package metrics exposes the research core's Prometheus instrumentation:
// job-queue depth and state, per-action duration, and long-poll wake
// latency, registered once at startup and served from /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lancet"

// Registry holds every metric the dispatcher, status service, and tool
// router record against, plus the prometheus.Registerer they are bound to
// so cmd/lancet-server can serve it from /metrics with promhttp.HandlerFor.
type Registry struct {
	Registerer     *prometheus.Registry
	JobsEnqueued   *prometheus.CounterVec
	JobsCompleted  *prometheus.CounterVec
	QueueDepth     *prometheus.GaugeVec
	ActionDuration *prometheus.HistogramVec
	WakeLatency    prometheus.Histogram
	ToolCalls      *prometheus.CounterVec
	ActiveTasks    prometheus.Gauge
	CircuitState   *prometheus.GaugeVec
}

// NewRegistry creates a fresh prometheus.Registry and registers every metric
// against it via promauto.With, so tests and multiple server instances in
// the same process never collide on the global default registerer.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Registry{
		Registerer: reg,

		JobsEnqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "jobs_enqueued_total",
			Help:      "Total jobs enqueued, by kind.",
		}, []string{"kind"}),

		JobsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "jobs_completed_total",
			Help:      "Total jobs completed, by kind and outcome (success, failed, cancelled).",
		}, []string{"kind", "outcome"}),

		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "queue_depth",
			Help:      "Pending job count, by kind.",
		}, []string{"kind"}),

		ActionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "action_duration_seconds",
			Help:      "Action execution duration, by kind.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),

		WakeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "wake_latency_seconds",
			Help:      "Time between a TaskHub.Notify call and a long-poll get_status waiter waking.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "toolrouter",
			Name:      "calls_total",
			Help:      "Tool dispatch calls, by tool name and result (ok, error).",
		}, []string{"tool", "result"}),

		ActiveTasks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "active",
			Help:      "Tasks currently in a non-terminal status.",
		}),

		CircuitState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engines",
			Name:      "circuit_state",
			Help:      "Search engine circuit breaker state (0=closed, 0.5=half-open, 1=open), by engine.",
		}, []string{"engine"}),
	}
}

// ObserveAction times a dispatcher action and records its duration.
func (r *Registry) ObserveAction(kind string, start time.Time) {
	r.ActionDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// RecordToolCall records a completed Dispatch call.
func (r *Registry) RecordToolCall(tool string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.ToolCalls.WithLabelValues(tool, result).Inc()
}

// RecordJobOutcome records a job's terminal state.
func (r *Registry) RecordJobOutcome(kind, outcome string) {
	r.JobsCompleted.WithLabelValues(kind, outcome).Inc()
}
