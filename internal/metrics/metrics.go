// Package metrics exposes Prometheus instrumentation for the gateway. Labels
// carry tool names and error codes only; no identifiers or PHI.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's collectors. All methods are safe on a nil
// receiver so components can run without instrumentation in tests.
type Metrics struct {
	// Tool invocations by tool name and result code ("OK" on success)
	ToolCalls *prometheus.CounterVec

	// Dispatcher latency by tool name, including audit enqueue
	ToolDuration *prometheus.HistogramVec

	// Rejected requests by auth error code
	AuthFailures *prometheus.CounterVec

	// Audit rows that could not be persisted
	AuditWriteFailures prometheus.Counter
}

// New creates and registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_gateway_tool_calls_total",
			Help: "Tool invocations by tool and result code",
		}, []string{"tool", "code"}),

		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcp_gateway_tool_duration_seconds",
			Help:    "Duration of tool invocations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"tool"}),

		AuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_gateway_auth_failures_total",
			Help: "Requests rejected by the auth gate by error code",
		}, []string{"code"}),

		AuditWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcp_gateway_audit_write_failures_total",
			Help: "Audit rows that failed to persist",
		}),
	}
}

// ObserveToolCall records one tool invocation.
func (m *Metrics) ObserveToolCall(tool, code string, d time.Duration) {
	if m == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	m.ToolCalls.WithLabelValues(tool, code).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// IncAuthFailure records a rejected request.
func (m *Metrics) IncAuthFailure(code string) {
	if m != nil {
		m.AuthFailures.WithLabelValues(code).Inc()
	}
}

// IncAuditWriteFailure records a swallowed audit write error.
func (m *Metrics) IncAuditWriteFailure() {
	if m != nil {
		m.AuditWriteFailures.Inc()
	}
}
