package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "hardenlab.io/resilience-go"
)

// StartTracing opens a span for one scenario phase and returns the derived
// context so nested phases chain onto it
func StartTracing(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, spanName)
}
