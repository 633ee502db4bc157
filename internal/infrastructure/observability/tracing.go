package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jan-server/services/flow-api/internal/utils/redact"
)

const (
	tracerName = "jan-server/flow-api"
)

// GetTracer returns the tracer for the flow-api service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartUpstreamSpan starts a client span around one upstream operation.
func StartUpstreamSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "flow."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("flow.operation", operation)),
	)
}

// StartGenerationSpan starts a span for one orchestrated generation.
func StartGenerationSpan(ctx context.Context, kind string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "generation."+kind,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("generation.kind", kind)),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error, kind string) {
	if err == nil {
		return
	}
	msg := redact.Message(err.Error())
	span.RecordError(errors.New(msg))
	span.SetStatus(codes.Error, msg)
	if kind != "" {
		span.SetAttributes(attribute.String("error.kind", kind))
	}
}

// AddRetryEvent adds a retry event to a span.
func AddRetryEvent(span trace.Span, attempt int, reason string) {
	span.AddEvent("retry",
		trace.WithAttributes(
			attribute.Int("retry.attempt", attempt),
			attribute.String("retry.reason", reason),
		),
	)
}
