package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PlansCreated counts maintenance plans persisted with their schedule.
	PlansCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "upkeep_plans_created_total",
			Help: "Total number of maintenance plans created",
		},
	)

	// EventsGenerated counts generated events per tier.
	EventsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upkeep_events_generated_total",
			Help: "Total number of maintenance events generated",
		},
		[]string{"level"},
	)

	// EventCompletions counts completions by resolved status.
	EventCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upkeep_event_completions_total",
			Help: "Total number of maintenance event completions",
		},
		[]string{"status"},
	)

	// HealthPenalty accumulates the health index points deducted.
	HealthPenalty = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "upkeep_health_penalty_total",
			Help: "Total health index points deducted for late or missed services",
		},
	)

	SweepTransitions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "upkeep_sweep_transitions_total",
			Help: "Total number of events moved from overdue to incomplete by the sweep",
		},
	)

	EmergencyMoves = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "upkeep_emergency_moves_total",
			Help: "Total number of emergency event end dates advanced to today",
		},
	)

	// OperationDuration measures engine operation latency.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upkeep_operation_duration_seconds",
			Help:    "Engine operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

var registerOnce sync.Once

// InitMetrics registers Prometheus metrics. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(PlansCreated)
		prometheus.MustRegister(EventsGenerated)
		prometheus.MustRegister(EventCompletions)
		prometheus.MustRegister(HealthPenalty)
		prometheus.MustRegister(SweepTransitions)
		prometheus.MustRegister(EmergencyMoves)
		prometheus.MustRegister(OperationDuration)
	})
}

// MetricsHandler returns HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
