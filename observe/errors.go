package observe

import "errors"

// Configuration errors.
var (
	// ErrMissingServiceName indicates Config.ServiceName is empty.
	ErrMissingServiceName = errors.New("observe: service name is required")

	// ErrInvalidSampleRatio indicates Config.SampleRatio is not in [0.0, 1.0].
	ErrInvalidSampleRatio = errors.New("observe: sample ratio must be between 0.0 and 1.0")

	// ErrInvalidTracesExporter indicates an unknown traces exporter name.
	ErrInvalidTracesExporter = errors.New("observe: invalid traces exporter")

	// ErrInvalidMetricsExporter indicates an unknown metrics exporter name.
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
)

// ValidTracesExporters lists accepted traces exporter names. The empty
// string is an alias for "none".
var ValidTracesExporters = []string{"otlp", "jaeger", "stdout", "none", ""}

// ValidMetricsExporters lists accepted metrics exporter names. The empty
// string is an alias for "none".
var ValidMetricsExporters = []string{"otlp", "prometheus", "stdout", "none", ""}
