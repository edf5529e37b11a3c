package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// RoutineMeta identifies a routine invocation for telemetry purposes.
type RoutineMeta struct {
	Schema string // Schema the routine lives in (may be empty)
	Name   string // Routine name (required)
	Method string // HTTP method of the endpoint (optional)
	Path   string // URL path of the endpoint (optional)
}

// SpanName returns the deterministic span name for this routine.
// Format: routine.exec.<schema>.<name> or routine.exec.<name>
func (m RoutineMeta) SpanName() string {
	if m.Schema != "" {
		return "routine.exec." + m.Schema + "." + m.Name
	}
	return "routine.exec." + m.Name
}

// ID returns the schema-qualified routine identifier.
func (m RoutineMeta) ID() string {
	if m.Schema != "" {
		return m.Schema + "." + m.Name
	}
	return m.Name
}

// Tracer wraps OpenTelemetry tracing with routine-scoped span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a routine invocation.
	StartSpan(ctx context.Context, meta RoutineMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with routine metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta RoutineMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("routine.id", meta.ID()),
		attribute.String("routine.name", meta.Name),
		attribute.Bool("routine.error", false),
	}
	if meta.Schema != "" {
		attrs = append(attrs, attribute.String("routine.schema", meta.Schema))
	}
	if meta.Method != "" {
		attrs = append(attrs, attribute.String("http.method", meta.Method))
	}
	if meta.Path != "" {
		attrs = append(attrs, attribute.String("http.route", meta.Path))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("routine.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NewNoopTracer returns a Tracer that records nothing.
func NewNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta RoutineMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
