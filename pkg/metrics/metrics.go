// Package metrics provides Prometheus metrics for the Clover service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Write outcomes
const (
	OutcomeCommitted = "committed"
	OutcomeConflict  = "conflict"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

var (
	// DocumentReadsTotal tracks document reads by outcome
	DocumentReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "documents",
			Name:      "reads_total",
			Help:      "Total number of config document reads by outcome",
		},
		[]string{"key", "status"},
	)

	// DocumentWritesTotal tracks document writes by outcome
	DocumentWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "documents",
			Name:      "writes_total",
			Help:      "Total number of config document writes by outcome",
		},
		[]string{"key", "outcome"},
	)

	// DocumentSeedsTotal tracks first-access seeding
	DocumentSeedsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "documents",
			Name:      "seeds_total",
			Help:      "Total number of config documents seeded with default content",
		},
		[]string{"key"},
	)

	// DocumentVersion tracks the last version this process observed
	DocumentVersion = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "documents",
			Name:      "version",
			Help:      "Latest config document version observed by this process",
		},
		[]string{"key"},
	)

	// OperationDuration tracks store operation latency
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "documents",
			Name:      "operation_duration_seconds",
			Help:      "Duration of config store operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	// EventPublishFailuresTotal tracks change events that could not be published
	EventPublishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "events",
			Name:      "publish_failures_total",
			Help:      "Total number of config document events that failed to publish",
		},
		[]string{"event_type"},
	)

	// RateLimitRejectionsTotal tracks writes rejected by the rate limiter
	RateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "http",
			Name:      "rate_limit_rejections_total",
			Help:      "Total number of write requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	// HTTPRequestDuration tracks request latency by route and status
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveOperation records the duration since start for operation.
func ObserveOperation(operation string, start time.Time) {
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
