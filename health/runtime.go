package health

import (
	"context"
	"fmt"
	"runtime"
)

// RuntimeCheckerConfig configures the runtime health checker.
type RuntimeCheckerConfig struct {
	// WarnGoroutines marks the check degraded when the goroutine count
	// reaches this value. Default: 5000.
	WarnGoroutines int

	// MaxGoroutines marks the check unhealthy when the goroutine count
	// reaches this value. Default: 20000.
	MaxGoroutines int
}

// RuntimeChecker watches goroutine count and heap usage of the process.
// A runaway goroutine count is the usual symptom of leaked cache waiters
// or stuck database acquisitions.
type RuntimeChecker struct {
	config RuntimeCheckerConfig
}

// NewRuntimeChecker creates a runtime health checker.
func NewRuntimeChecker(config RuntimeCheckerConfig) *RuntimeChecker {
	if config.WarnGoroutines <= 0 {
		config.WarnGoroutines = 5000
	}
	if config.MaxGoroutines <= config.WarnGoroutines {
		config.MaxGoroutines = 4 * config.WarnGoroutines
	}
	return &RuntimeChecker{config: config}
}

// Name returns the name of this checker.
func (c *RuntimeChecker) Name() string {
	return "runtime"
}

// Check reports goroutine and heap statistics.
func (c *RuntimeChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	goroutines := runtime.NumGoroutine()

	details := map[string]any{
		"goroutines":     goroutines,
		"heap_alloc_mb":  float64(stats.HeapAlloc) / (1024 * 1024),
		"heap_sys_mb":    float64(stats.HeapSys) / (1024 * 1024),
		"heap_objects":   stats.HeapObjects,
		"gc_cycles":      stats.NumGC,
		"gc_pause_total": stats.PauseTotalNs,
	}

	switch {
	case goroutines >= c.config.MaxGoroutines:
		return Unhealthy(
			fmt.Sprintf("goroutine count critical: %d", goroutines),
			ErrCheckFailed,
		).WithDetails(details)
	case goroutines >= c.config.WarnGoroutines:
		return Degraded(
			fmt.Sprintf("goroutine count high: %d", goroutines),
		).WithDetails(details)
	default:
		return Healthy(
			fmt.Sprintf("%d goroutines", goroutines),
		).WithDetails(details)
	}
}

var _ Checker = (*RuntimeChecker)(nil)
