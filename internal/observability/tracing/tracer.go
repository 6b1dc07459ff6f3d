package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies spans created by this application.
const tracerName = "daily-digest"

// GetTracer returns the global tracer for creating spans.
// It is resolved on each call so that a TracerProvider installed after
// package initialization (including in tests) is honored.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// Start starts a child span with the given attributes.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// Setup installs a sampling SDK tracer provider and the W3C propagators.
// No exporter is attached: spans carry the trace id into logs and the
// X-Trace-Id header. The returned func flushes and stops the provider.
func Setup() func(context.Context) error {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown
}
