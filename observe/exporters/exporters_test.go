package exporters

import (
	"context"
	"testing"
)

func clearOTLPEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_JAEGER_ENDPOINT", "")
}

func TestTracingExporter_InvalidName(t *testing.T) {
	if _, err := NewTracingExporter(context.Background(), "zipkin", ""); err == nil {
		t.Fatal("expected error for unknown exporter name")
	}
}

func TestTracingExporter_Stdout(t *testing.T) {
	exp, err := NewTracingExporter(context.Background(), "stdout", "")
	if err != nil {
		t.Fatalf("stdout exporter error = %v", err)
	}
	if exp == nil {
		t.Fatal("stdout exporter is nil")
	}
}

func TestTracingExporter_None(t *testing.T) {
	for _, name := range []string{"none", ""} {
		exp, err := NewTracingExporter(context.Background(), name, "")
		if err != nil {
			t.Fatalf("%q exporter error = %v", name, err)
		}
		if exp == nil {
			t.Fatalf("%q exporter is nil", name)
		}
	}
}

func TestTracingExporter_OTLPMissingEndpoint(t *testing.T) {
	clearOTLPEnv(t)
	if _, err := NewTracingExporter(context.Background(), "otlp", ""); err == nil {
		t.Fatal("expected error without an OTLP endpoint")
	}
}

func TestTracingExporter_OTLPWithEndpoint(t *testing.T) {
	clearOTLPEnv(t)
	// gRPC dials lazily, so construction succeeds without a collector.
	exp, err := NewTracingExporter(context.Background(), "otlp", "localhost:4317")
	if err != nil {
		t.Fatalf("otlp exporter error = %v", err)
	}
	if exp == nil {
		t.Fatal("otlp exporter is nil")
	}
}

func TestTracingExporter_OTLPFromEnv(t *testing.T) {
	clearOTLPEnv(t)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	if _, err := NewTracingExporter(context.Background(), "otlp", ""); err != nil {
		t.Fatalf("otlp exporter from env error = %v", err)
	}
}

func TestTracingExporter_JaegerMissingEndpoint(t *testing.T) {
	clearOTLPEnv(t)
	if _, err := NewTracingExporter(context.Background(), "jaeger", ""); err == nil {
		t.Fatal("expected error without a Jaeger endpoint")
	}
}

func TestMetricsReader_InvalidName(t *testing.T) {
	if _, err := NewMetricsReader(context.Background(), "statsd", ""); err == nil {
		t.Fatal("expected error for unknown reader name")
	}
}

func TestMetricsReader_Stdout(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "stdout", "")
	if err != nil {
		t.Fatalf("stdout reader error = %v", err)
	}
	if reader == nil {
		t.Fatal("stdout reader is nil")
	}
	_ = reader.Shutdown(context.Background())
}

func TestMetricsReader_None(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "none", "")
	if err != nil {
		t.Fatalf("none reader error = %v", err)
	}
	if reader == nil {
		t.Fatal("none reader is nil")
	}
	_ = reader.Shutdown(context.Background())
}

func TestMetricsReader_OTLPMissingEndpoint(t *testing.T) {
	clearOTLPEnv(t)
	if _, err := NewMetricsReader(context.Background(), "otlp", ""); err == nil {
		t.Fatal("expected error without an OTLP endpoint")
	}
}

func TestMetricsReader_Prometheus(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "prometheus", "")
	if err != nil {
		t.Fatalf("prometheus reader error = %v", err)
	}
	if reader == nil {
		t.Fatal("prometheus reader is nil")
	}
	_ = reader.Shutdown(context.Background())
}
