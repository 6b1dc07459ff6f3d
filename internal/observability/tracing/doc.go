// Package tracing provides OpenTelemetry tracing integration.
//
// The server wraps every request in a server span (Middleware), and the digest
// service opens child spans for each category sweep and upstream call through
// Start. Without a configured TracerProvider the global no-op provider is used,
// so spans cost nothing until an exporter is installed.
//
// Example usage:
//
//	ctx, span := tracing.Start(ctx, "digest.sweep")
//	defer span.End()
package tracing
