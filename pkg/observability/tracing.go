package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name for agent spans.
const TracerName = "scrumlink/agent"

// Span attribute keys.
const (
	AttrSessionID   = "session.id"
	AttrMeetingURL  = "session.meeting_url"
	AttrChunkEvents = "chunk.events"
	AttrChunkBytes  = "chunk.bytes"
	AttrOperation   = "intelligence.operation"
	AttrModel       = "intelligence.model"
	AttrQuestion    = "question.asked"
)

// Tracer wraps an OpenTelemetry tracer for agent operations.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer using the global provider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// StartSessionSpan starts a span covering a session lifecycle operation.
func (t *Tracer) StartSessionSpan(ctx context.Context, operation, sessionID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("session.%s", operation),
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
		),
	)
}

// StartChunkSpan starts a span covering one transcript chunk.
func (t *Tracer) StartChunkSpan(ctx context.Context, sessionID string, events, bytes int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.process_chunk",
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
			attribute.Int(AttrChunkEvents, events),
			attribute.Int(AttrChunkBytes, bytes),
		),
	)
}

// StartIntelligenceSpan starts a span covering one model call.
func (t *Tracer) StartIntelligenceSpan(ctx context.Context, operation, model string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("intelligence.%s", operation),
		trace.WithAttributes(
			attribute.String(AttrOperation, operation),
			attribute.String(AttrModel, model),
		),
	)
}

// SpanHelper provides error/success shorthands on a span.
type SpanHelper struct {
	span trace.Span
}

// NewSpanHelper wraps a span.
func NewSpanHelper(span trace.Span) *SpanHelper {
	return &SpanHelper{span: span}
}

// SetError marks the span as failed and records the error.
func (h *SpanHelper) SetError(err error) {
	if err == nil {
		return
	}
	h.span.RecordError(err)
	h.span.SetStatus(codes.Error, err.Error())
}

// SetSuccess marks the span as successful.
func (h *SpanHelper) SetSuccess() {
	h.span.SetStatus(codes.Ok, "")
}

// AddAttribute adds a string attribute to the span.
func (h *SpanHelper) AddAttribute(key, value string) {
	h.span.SetAttributes(attribute.String(key, value))
}

// GetTraceID returns the trace id from the context, or empty.
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// GetSpanID returns the span id from the context, or empty.
func GetSpanID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.SpanID().String()
}
