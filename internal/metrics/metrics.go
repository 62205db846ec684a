// Package metrics provides Prometheus metrics for the BuyerCheck backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchPassesTotal tracks matching passes by resulting phase
	MatchPassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buyercheck",
			Subsystem: "matching",
			Name:      "passes_total",
			Help:      "Total number of matching passes by resulting phase",
		},
		[]string{"trigger", "phase"},
	)

	// MatchCandidates tracks how many candidates a pass produced
	MatchCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "buyercheck",
			Subsystem: "matching",
			Name:      "candidates",
			Help:      "Number of candidates returned by a matching pass",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 25},
		},
	)

	// SelectionsTotal tracks user selection events
	SelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buyercheck",
			Subsystem: "session",
			Name:      "selections_total",
			Help:      "Total number of candidate selection events",
		},
		[]string{"event", "status"},
	)

	// SessionsStartedTotal tracks page sessions opened by the extension
	SessionsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buyercheck",
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Total number of page sessions started",
		},
	)

	// EntityMutationsTotal tracks entity directory changes
	EntityMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buyercheck",
			Subsystem: "entities",
			Name:      "mutations_total",
			Help:      "Total number of entity directory mutations",
		},
		[]string{"operation", "status"},
	)

	// HighlightCommandsTotal tracks highlight commands issued to pages
	HighlightCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buyercheck",
			Subsystem: "highlight",
			Name:      "commands_total",
			Help:      "Total number of highlight commands issued",
		},
		[]string{"kind"},
	)

	// HTTPRequestsTotal tracks inbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buyercheck",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration tracks inbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buyercheck",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of inbound HTTP requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "route"},
	)

	// RateLimitedTotal tracks requests rejected by the per-IP limiter
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buyercheck",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
	)
)

// Status returns the label value for an operation result
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
