// Package observe wires logging, tracing, and metrics for the gateway.
//
// The package owns three concerns: construction of the root zerolog logger,
// construction of the OpenTelemetry tracer and meter providers from an
// exporter configuration, and the instrumentation primitives the request
// pipeline uses (per-routine spans, execution counters, cache and retry
// counters, HTTP middleware).
//
// # Patterns
//
//   - Single Observer: NewObserver builds both providers once, registers
//     them globally, and tears them down through Shutdown.
//   - Exporter factory: exporter names ("stdout", "otlp", "jaeger",
//     "prometheus", "none") map to concrete exporters in the exporters
//     subpackage; "none" yields a discard exporter so callers never
//     branch on enablement.
//   - Context logging: the root logger travels on the request context via
//     hlog, so any layer can emit fields without plumbing a logger.
//
// # Usage
//
//	logger := observe.NewLogger("npgsqlrest", "info", "json")
//	obs, err := observe.NewObserver(ctx, observe.Config{
//		ServiceName:     "npgsqlrest",
//		TracesExporter:  "otlp",
//		MetricsExporter: "prometheus",
//		OTLPEndpoint:    "localhost:4317",
//		SampleRatio:     0.25,
//	})
//	if err != nil {
//		return err
//	}
//	defer obs.Shutdown(ctx)
//
//	tracer := observe.NewTracer(obs.Tracer())
//	metrics, err := observe.NewMetrics(obs.Meter())
package observe
