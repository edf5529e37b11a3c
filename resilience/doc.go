// Package resilience provides failure-handling patterns for database work.
//
// The central piece is Retry: a bounded, deterministic retry loop driven by a
// Strategy. A Strategy pairs a literal delay sequence with the set of error
// codes it is willing to retry; there is no jitter and no computed backoff,
// so operators can tune exact per-class waits. Separate strategies are used
// for connection establishment and for command execution.
//
// # Patterns
//
//   - Retry: replays a failed operation following a Strategy's delay
//     sequence, consulting an injected classifier to decide retry-vs-abort.
//
//   - Timeout: bounds an operation with a derived deadline and marks the
//     resulting failure so it can be mapped as a timeout downstream.
//
//   - Circuit Breaker: stops hammering an unreachable database after a
//     failure threshold, probing again after a reset period.
//
//   - Bulkhead: caps concurrent executions to protect the connection pool.
//
//   - Rate Limiter: token-bucket admission control, exposed to the HTTP
//     layer as middleware.
//
// # Usage
//
// Patterns compose through the Executor:
//
//	strategies, _ := resilience.NewStrategies("default", resilience.Strategy{
//	    Name:   "default",
//	    Delays: []time.Duration{50 * time.Millisecond, 200 * time.Millisecond, time.Second},
//	    Codes:  resilience.NewCodeSet("40001", "40P01"),
//	})
//
//	r := resilience.NewRetry(resilience.RetryConfig{
//	    Strategy: strategies.Resolve("default"),
//	    RetryIf:  classifier,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithRetry(r),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return runCommand(ctx)
//	})
package resilience
