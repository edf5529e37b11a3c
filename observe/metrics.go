package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CacheOutcome labels a cache lookup in metrics.
type CacheOutcome string

const (
	CacheHit    CacheOutcome = "hit"
	CacheMiss   CacheOutcome = "miss"
	CacheStore  CacheOutcome = "store"
	CacheBypass CacheOutcome = "bypass"
)

// Metrics records execution metrics for routine invocations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordExecution records a routine invocation with duration and error status.
	RecordExecution(ctx context.Context, meta RoutineMeta, duration time.Duration, err error)

	// RecordCache records the outcome of a cache interaction.
	RecordCache(ctx context.Context, meta RoutineMeta, outcome CacheOutcome)

	// RecordRetry records one retried attempt, labeled with the SQLSTATE
	// that triggered it (empty for non-database errors).
	RecordRetry(ctx context.Context, meta RoutineMeta, code string)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	cacheCount   metric.Int64Counter
	retryCount   metric.Int64Counter
}

// NewMetrics creates the invocation instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"routine.exec.total",
		metric.WithDescription("Total number of routine invocations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"routine.exec.errors",
		metric.WithDescription("Total number of failed routine invocations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"routine.exec.duration_ms",
		metric.WithDescription("Routine invocation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheCount, err := meter.Int64Counter(
		"cache.lookups.total",
		metric.WithDescription("Cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	retryCount, err := meter.Int64Counter(
		"retry.attempts.total",
		metric.WithDescription("Retried attempts by SQLSTATE"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		cacheCount:   cacheCount,
		retryCount:   retryCount,
	}, nil
}

func routineAttrs(meta RoutineMeta) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("routine.id", meta.ID()),
		attribute.String("routine.name", meta.Name),
	}
	if meta.Schema != "" {
		attrs = append(attrs, attribute.String("routine.schema", meta.Schema))
	}
	return attrs
}

// RecordExecution records counters and the duration histogram for one invocation.
func (m *metricsImpl) RecordExecution(ctx context.Context, meta RoutineMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(routineAttrs(meta)...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration)/float64(time.Millisecond), opt)
}

// RecordCache increments the cache lookup counter for the outcome.
func (m *metricsImpl) RecordCache(ctx context.Context, meta RoutineMeta, outcome CacheOutcome) {
	attrs := append(routineAttrs(meta), attribute.String("cache.outcome", string(outcome)))
	m.cacheCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRetry increments the retry counter for the SQLSTATE.
func (m *metricsImpl) RecordRetry(ctx context.Context, meta RoutineMeta, code string) {
	attrs := append(routineAttrs(meta), attribute.String("sqlstate", code))
	m.retryCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}

type noopMetrics struct{}

// NewNoopMetrics returns a Metrics that records nothing.
func NewNoopMetrics() Metrics {
	return &noopMetrics{}
}

func (noopMetrics) RecordExecution(context.Context, RoutineMeta, time.Duration, error) {}
func (noopMetrics) RecordCache(context.Context, RoutineMeta, CacheOutcome)             {}
func (noopMetrics) RecordRetry(context.Context, RoutineMeta, string)                   {}
