package observe

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/observe/exporters"
)

// Config controls the telemetry providers built by NewObserver.
type Config struct {
	// ServiceName identifies this process in traces and metrics. Required.
	ServiceName string

	// Version is the service version reported as a resource attribute.
	Version string

	// TracesExporter selects the span exporter: otlp, jaeger, stdout, none.
	TracesExporter string

	// MetricsExporter selects the metrics reader: otlp, prometheus, stdout, none.
	MetricsExporter string

	// OTLPEndpoint overrides the OTLP collector endpoint. When empty the
	// standard OTEL_EXPORTER_OTLP_* environment variables apply.
	OTLPEndpoint string

	// SampleRatio is the head sampling ratio in [0.0, 1.0]. Values at or
	// above 1.0 sample everything, values at or below 0.0 sample nothing.
	SampleRatio float64
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if c.SampleRatio < 0.0 || c.SampleRatio > 1.0 {
		return fmt.Errorf("%w: got %v", ErrInvalidSampleRatio, c.SampleRatio)
	}
	if !slices.Contains(ValidTracesExporters, c.TracesExporter) {
		return fmt.Errorf("%w: %q", ErrInvalidTracesExporter, c.TracesExporter)
	}
	if !slices.Contains(ValidMetricsExporters, c.MetricsExporter) {
		return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, c.MetricsExporter)
	}
	return nil
}

// Observer holds the tracer and meter providers for the process.
//
// Contract:
// - Concurrency: all methods are safe for concurrent use.
// - Ownership: the caller must invoke Shutdown to flush exporters.
type Observer struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
}

// NewObserver validates cfg, builds the tracer and meter providers, and
// registers them as the process-wide OpenTelemetry defaults. The "none"
// exporters produce providers that discard everything, so the returned
// Observer is always usable.
func NewObserver(ctx context.Context, cfg Config) (*Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observe: failed to create resource: %w", err)
	}

	obs := &Observer{}
	if obs.tracerProvider, obs.tracer, err = setupTracing(ctx, cfg, res); err != nil {
		return nil, err
	}
	if obs.meterProvider, obs.meter, err = setupMetrics(ctx, cfg, res); err != nil {
		return nil, err
	}
	return obs, nil
}

func setupTracing(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, trace.Tracer, error) {
	exporter, err := exporters.NewTracingExporter(ctx, cfg.TracesExporter, cfg.OTLPEndpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("observe: failed to create trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRatio >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRatio <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	return tp, tp.Tracer(cfg.ServiceName), nil
}

func setupMetrics(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, metric.Meter, error) {
	reader, err := exporters.NewMetricsReader(ctx, cfg.MetricsExporter, cfg.OTLPEndpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("observe: failed to create metrics reader: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	return mp, mp.Meter(cfg.ServiceName), nil
}

// Tracer returns the tracer scoped to the configured service name.
func (o *Observer) Tracer() trace.Tracer {
	return o.tracer
}

// Meter returns the meter scoped to the configured service name.
func (o *Observer) Meter() metric.Meter {
	return o.meter
}

// Shutdown flushes and stops both providers. It is best effort and joins
// the errors from each provider.
func (o *Observer) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("observe: tracer shutdown: %w", err))
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("observe: meter shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
