package resilience

import (
	"context"
	"time"
)

// Executor composes resilience patterns into a single execution wrapper.
type Executor struct {
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor from the given patterns. Options may be
// passed in any order; the wrapping order is fixed (see Execute).
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRateLimiter adds rate limiting to the executor.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = rl }
}

// WithBulkhead adds concurrency capping to the executor.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithTimeout adds a per-operation deadline to the executor.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout}) }
}

// WithTimeoutConfig adds a preconfigured timeout wrapper to the executor.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) { e.timeout = t }
}

// wrapper adapts a pattern's Execute method into the chain.
type wrapper interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Execute runs the operation through every configured pattern.
//
// Wrapping order, outermost first: rate limiter, bulkhead, circuit breaker,
// retry, timeout. Admission control rejects before any slot or probe is
// spent; the timeout sits innermost so each retry attempt gets a fresh
// deadline.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op
	for _, w := range []wrapper{e.timeout, e.retry, e.circuitBreaker, e.bulkhead, e.rateLimiter} {
		if w == nil || isNilWrapper(w) {
			continue
		}
		inner, outer := execute, w
		execute = func(ctx context.Context) error {
			return outer.Execute(ctx, inner)
		}
	}
	return execute(ctx)
}

// isNilWrapper unwraps typed nils hiding behind the wrapper interface.
func isNilWrapper(w wrapper) bool {
	switch v := w.(type) {
	case *RateLimiter:
		return v == nil
	case *Bulkhead:
		return v == nil
	case *CircuitBreaker:
		return v == nil
	case *Retry:
		return v == nil
	case *Timeout:
		return v == nil
	default:
		return false
	}
}
