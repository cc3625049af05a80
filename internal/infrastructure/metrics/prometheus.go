// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "framegrab"

var (
	// TierOperationsTotal tracks cache tier operations.
	// Labels:
	//   - operation: lookup, store
	//   - status: hit, miss, success, error, skipped
	//   - tier: memory, file, object
	TierOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_operations_total",
			Help:      "Total number of cache tier operations",
		},
		[]string{"operation", "status", "tier"},
	)

	// SingleflightRequestsTotal tracks extraction coalescing behavior.
	// Labels:
	//   - result: initiated (new extraction), shared (attached as waiter)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight extraction requests",
		},
		[]string{"result"},
	)

	// ExtractionsTotal tracks terminal extraction outcomes.
	// Labels:
	//   - outcome: success, resolve_error, extract_error, out_of_range
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Total number of frame extractions by outcome",
		},
		[]string{"outcome"},
	)

	// ExtractionDurationSeconds observes the full resolve+extract latency.
	ExtractionDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Duration of resolve and extract for cache misses",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)
)

// Tier operation status constants.
const (
	TierStatusHit     = "hit"
	TierStatusMiss    = "miss"
	TierStatusSuccess = "success"
	TierStatusError   = "error"
	TierStatusSkipped = "skipped"
)

// Tier operation type constants.
const (
	TierOpLookup = "lookup"
	TierOpStore  = "store"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Extraction outcome constants.
const (
	OutcomeSuccess      = "success"
	OutcomeResolveError = "resolve_error"
	OutcomeExtractError = "extract_error"
	OutcomeOutOfRange   = "out_of_range"
)
