// Package metrics holds the Prometheus collectors shared by the pipeline,
// its backends and the HTTP transport.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "doctech"

var (
	// StageDuration measures each pipeline stage (transcribe, classify, extract,
	// resolve, narrate, speak).
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"stage", "outcome"},
	)

	// ActionsTotal counts classified actions by category.
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Total number of classified actions",
		},
		[]string{"action"},
	)

	// BackendRequestsTotal counts calls to language and speech backends.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total number of language and speech backend requests",
		},
		[]string{"backend", "operation", "status"},
	)

	// SearchRequestsTotal counts search gateway calls by outcome
	// (match, no_match, error, rejected).
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of semantic search requests",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(BackendRequestsTotal)
	prometheus.MustRegister(SearchRequestsTotal)
}

// Outcome returns the status label for err.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
