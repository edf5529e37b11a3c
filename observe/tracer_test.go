package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRoutineMeta_SpanName(t *testing.T) {
	tests := []struct {
		name string
		meta RoutineMeta
		want string
	}{
		{"with schema", RoutineMeta{Schema: "public", Name: "get_user"}, "routine.exec.public.get_user"},
		{"without schema", RoutineMeta{Name: "get_user"}, "routine.exec.get_user"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.meta.SpanName(); got != tc.want {
				t.Errorf("SpanName() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRoutineMeta_ID(t *testing.T) {
	if got := (RoutineMeta{Schema: "billing", Name: "charge"}).ID(); got != "billing.charge" {
		t.Errorf("ID() = %q, want %q", got, "billing.charge")
	}
	if got := (RoutineMeta{Name: "charge"}).ID(); got != "charge" {
		t.Errorf("ID() = %q, want %q", got, "charge")
	}
}

func recordingTracer() (Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewTracer(tp.Tracer("test")), recorder
}

func TestTracer_SpanAttributes(t *testing.T) {
	tr, recorder := recordingTracer()
	meta := RoutineMeta{
		Schema: "public",
		Name:   "get_user",
		Method: "GET",
		Path:   "/api/public/get-user",
	}

	_, span := tr.StartSpan(context.Background(), meta)
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	s := spans[0]

	if s.Name() != "routine.exec.public.get_user" {
		t.Errorf("span name = %q, want %q", s.Name(), "routine.exec.public.get_user")
	}

	attrMap := make(map[string]attribute.Value)
	for _, a := range s.Attributes() {
		attrMap[string(a.Key)] = a.Value
	}
	if v := attrMap["routine.id"]; v.AsString() != "public.get_user" {
		t.Errorf("routine.id = %v, want public.get_user", v)
	}
	if v := attrMap["routine.schema"]; v.AsString() != "public" {
		t.Errorf("routine.schema = %v, want public", v)
	}
	if v := attrMap["http.method"]; v.AsString() != "GET" {
		t.Errorf("http.method = %v, want GET", v)
	}
	if v := attrMap["http.route"]; v.AsString() != "/api/public/get-user" {
		t.Errorf("http.route = %v, want /api/public/get-user", v)
	}
	if v := attrMap["routine.error"]; v.AsBool() {
		t.Errorf("routine.error = true, want false")
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

func TestTracer_EndSpanRecordsError(t *testing.T) {
	tr, recorder := recordingTracer()

	_, span := tr.StartSpan(context.Background(), RoutineMeta{Schema: "public", Name: "boom"})
	tr.EndSpan(span, errors.New("deadlock detected"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	s := spans[0]

	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	var errAttr bool
	for _, a := range s.Attributes() {
		if string(a.Key) == "routine.error" {
			errAttr = a.Value.AsBool()
		}
	}
	if !errAttr {
		t.Error("routine.error attribute not set to true")
	}
	if len(s.Events()) == 0 {
		t.Error("error event not recorded")
	}
}

func TestNoopTracer_NoPanic(t *testing.T) {
	tr := NewNoopTracer()
	ctx, span := tr.StartSpan(context.Background(), RoutineMeta{Name: "anything"})
	if ctx == nil {
		t.Fatal("StartSpan returned nil context")
	}
	tr.EndSpan(span, errors.New("ignored"))
}
