// Package observability groups the digest server's logging, metrics and tracing.
//
// logging holds the slog setup, metrics holds the Prometheus collectors served at
// /metrics, and tracing installs the OpenTelemetry provider and HTTP middleware.
package observability
