package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "chat-backend"
)

// GetTracer returns the tracer for the chat backend.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StreamAttributes returns common attributes for generation spans.
func StreamAttributes(conversationID, model string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("stream.conversation_id", conversationID),
		attribute.String("stream.model", model),
	}
}

// StartStreamSpan starts a new span for one model generation. The stream
// identifier is not known yet; attach it with SetStreamID once assigned.
func StartStreamSpan(ctx context.Context, conversationID, model string) (context.Context, trace.Span) {
	ctx, span := GetTracer().Start(ctx, "stream.generate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(StreamAttributes(conversationID, model)...),
	)
	return ctx, span
}

// SetStreamID attaches the session identifier to the span.
func SetStreamID(span trace.Span, streamID string) {
	span.SetAttributes(attribute.String("stream.id", streamID))
}

// StartPersistSpan starts a new span for turn persistence.
func StartPersistSpan(ctx context.Context, conversationID string) (context.Context, trace.Span) {
	ctx, span := GetTracer().Start(ctx, "persist.turns",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("conversation.id", conversationID)),
	)
	return ctx, span
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddStatusTransition adds a status transition event to a span.
func AddStatusTransition(span trace.Span, fromStatus, toStatus string) {
	span.AddEvent("status.transition",
		trace.WithAttributes(
			attribute.String("status.from", fromStatus),
			attribute.String("status.to", toStatus),
		),
	)
}

// AddCancelEvent marks the span as cancelled by the consumer.
func AddCancelEvent(span trace.Span, fragments int) {
	span.AddEvent("stream.cancelled",
		trace.WithAttributes(
			attribute.Int("stream.fragments", fragments),
		),
	)
}
