package metrics

import "time"

// RecordUpstreamCall records one upstream attempt.
// Outcome is "success" or the degradation reason of the attempt.
func RecordUpstreamCall(feed, outcome string, duration time.Duration) {
	UpstreamCallsTotal.WithLabelValues(feed, outcome).Inc()
	UpstreamCallDuration.WithLabelValues(feed).Observe(duration.Seconds())
}

// RecordRetry records that a failed attempt is about to be retried.
func RecordRetry(feed string) {
	RetriesTotal.WithLabelValues(feed).Inc()
}

// RecordDegraded records a feed item that fell back to a placeholder.
func RecordDegraded(feed, reason string) {
	DegradedTotal.WithLabelValues(feed, reason).Inc()
}

// RecordCacheLookup records a cache lookup result for a namespace.
func RecordCacheLookup(namespace string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(namespace, result).Inc()
}

// RecordSweep records a completed category sweep.
func RecordSweep(duration time.Duration, partial bool) {
	SweepDuration.Observe(duration.Seconds())
	result := "complete"
	if partial {
		result = "partial"
	}
	SweepsTotal.WithLabelValues(result).Inc()
}

// SetCircuitBreakerState records the numeric state of a named breaker.
func SetCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

