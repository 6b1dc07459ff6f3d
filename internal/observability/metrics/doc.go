// Package metrics declares the Prometheus collectors for the digest server.
//
// Collectors register with the default registry at init and are scraped at
// /metrics. Callers use the Record helpers rather than touching collectors:
//
//	metrics.RecordUpstreamCall("quote", "success", time.Since(start))
//	metrics.RecordCacheLookup("horoscope", false)
package metrics
