// Package metrics provides Prometheus metrics collection for the fleet coordinator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetrelay_operations_total",
		Help: "Total number of coordinator operations by name and outcome",
	}, []string{"operation", "outcome"}) // outcome=success|not_found|not_available|already_ended|policy_violation|rolled_back

	operationDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleetrelay_operation_duration_seconds",
		Help:    "Duration of coordinator operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	telemetryEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetrelay_telemetry_events_total",
		Help: "Total number of telemetry events classified by type",
	}, []string{"event_type"})

	telemetryQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetrelay_telemetry_queue_depth",
		Help: "Number of telemetry samples currently queued",
	})

	auditChainLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetrelay_audit_chain_length",
		Help: "Number of entries currently in the audit chain",
	})

	auditWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetrelay_audit_write_failures_total",
		Help: "Total number of audit append failures",
	})

	vehiclesByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fleetrelay_vehicles_by_state",
		Help: "Number of vehicles currently in each lifecycle state",
	}, []string{"state"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetrelay_http_requests_total",
		Help: "Total number of HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleetrelay_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// ObserveOperation records one coordinator operation's outcome and latency.
func ObserveOperation(operation, outcome string, durationSeconds float64) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
	operationDurationSeconds.WithLabelValues(operation).Observe(durationSeconds)
}

// IncTelemetryEvent increments the counter for a classified telemetry event type.
func IncTelemetryEvent(eventType string) {
	telemetryEventsTotal.WithLabelValues(eventType).Inc()
}

// SetTelemetryQueueDepth records the current telemetry queue depth.
func SetTelemetryQueueDepth(n int) {
	telemetryQueueDepth.Set(float64(n))
}

// SetAuditChainLength records the current audit chain length.
func SetAuditChainLength(n int) {
	auditChainLength.Set(float64(n))
}

// IncAuditWriteFailure increments the audit write failure counter.
func IncAuditWriteFailure() {
	auditWriteFailuresTotal.Inc()
}

// SetVehiclesByState sets the vehicle-by-state gauge for each state in
// counts; states not in counts keep their previous value.
func SetVehiclesByState(counts map[string]int) {
	for state, n := range counts {
		vehiclesByState.WithLabelValues(state).Set(float64(n))
	}
}

// ObserveHTTPRequest records one HTTP request's route, status and latency.
func ObserveHTTPRequest(method, route, status string, durationSeconds float64) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(durationSeconds)
}

// Handler returns the Prometheus scrape endpoint handler, mounted by
// cmd/fleetrelayd alongside the façade's own routes.
func Handler() http.Handler {
	return promhttp.Handler()
}
