// Package metrics exposes the Prometheus counters/gauges the orchestrator's
// components emit. Grounded on the teacher's internal/observability/metrics.go
// (promauto-registered CounterVec/GaugeVec/HistogramVec), trimmed to the
// handful of series this spec's components actually produce: active
// sessions, dropped event-bus events, provider retry counts, and tool
// execution duration.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the series this orchestrator exposes. Construct once per
// process with New and share the instance across components.
type Metrics struct {
	// ActiveSessions tracks how many sessions currently hold a stream lock.
	ActiveSessions prometheus.Gauge

	// DroppedEvents counts UI events the Event Bus dropped under
	// backpressure (Token/Thinking/BashOutputLine only).
	DroppedEvents prometheus.Counter

	// ProviderRetries counts backoff retries attempted against a provider,
	// labeled by provider family.
	ProviderRetries *prometheus.CounterVec

	// ToolExecutionDuration measures how long a tool invocation takes,
	// labeled by tool name and outcome (success|error).
	ToolExecutionDuration *prometheus.HistogramVec
}

// New creates and registers all metrics with the default Prometheus
// registry. Call once at process startup.
func New() *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "arula_active_sessions",
			Help: "Current number of sessions holding an active stream lock.",
		}),
		DroppedEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "arula_eventbus_dropped_total",
			Help: "Total number of UI events dropped by the event bus under backpressure.",
		}),
		ProviderRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arula_provider_retries_total",
			Help: "Total number of stream-open retries attempted, by provider family.",
		}, []string{"provider"}),
		ToolExecutionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arula_tool_execution_duration_seconds",
			Help:    "Duration of tool executions in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"tool_name", "status"}),
	}
}

// RecordToolExecution records one tool invocation's outcome and duration.
func (m *Metrics) RecordToolExecution(toolName string, isError bool, durationSeconds float64) {
	status := "success"
	if isError {
		status = "error"
	}
	m.ToolExecutionDuration.WithLabelValues(toolName, status).Observe(durationSeconds)
}

// RecordProviderRetry records one retried stream-open attempt.
func (m *Metrics) RecordProviderRetry(provider string) {
	m.ProviderRetries.WithLabelValues(provider).Inc()
}

// RecordDroppedEvent mirrors one eventbus.Bus drop into the Prometheus
// counter. Callers poll eventbus.Bus.DroppedCount and report the delta, or
// call this directly from a drop callback.
func (m *Metrics) RecordDroppedEvent() {
	m.DroppedEvents.Inc()
}
