// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds.
	// A cold horoscope sweep takes well over ten seconds, hence the long tail buckets.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"method", "path", "status"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks the current number of HTTP requests being processed
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

// Upstream metrics track calls to third-party feed providers
var (
	// UpstreamCallsTotal counts individual upstream attempts by feed and outcome
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_upstream_calls_total",
			Help: "Total number of upstream feed calls",
		},
		[]string{"feed", "outcome"}, // outcome: success or a degradation reason
	)

	// UpstreamCallDuration measures the latency of a single upstream attempt
	UpstreamCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "digest_upstream_call_duration_seconds",
			Help:    "Upstream feed call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"feed"},
	)

	// RetriesTotal counts retry attempts scheduled after a failed call
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_retries_total",
			Help: "Total number of upstream retries",
		},
		[]string{"feed"},
	)

	// DegradedTotal counts items replaced by a fallback after retries were exhausted
	DegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_degraded_items_total",
			Help: "Total number of degraded feed items",
		},
		[]string{"feed", "reason"},
	)

	// CircuitBreakerState reports each upstream breaker: 0 closed, 1 half-open, 2 open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "digest_circuit_breaker_state",
			Help: "Current circuit breaker state per upstream (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// Digest metrics track cache and sweep behavior
var (
	// CacheLookupsTotal counts cache lookups by namespace and result
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_cache_lookups_total",
			Help: "Total number of digest cache lookups",
		},
		[]string{"namespace", "result"}, // result: hit, miss
	)

	// SweepDuration measures a full sequential horoscope sweep
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_sweep_duration_seconds",
			Help:    "Duration of a full category sweep in seconds",
			Buckets: []float64{1, 5, 10, 15, 20, 30, 60, 120},
		},
	)

	// SweepsTotal counts completed sweeps by result
	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_sweeps_total",
			Help: "Total number of completed category sweeps",
		},
		[]string{"result"}, // result: complete, partial
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}
