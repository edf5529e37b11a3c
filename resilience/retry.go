package resilience

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// Strategy supplies the literal delay sequence. The strategy's code set
	// is not consulted here; classification is injected through RetryIf so
	// this package stays ignorant of how codes are extracted from errors.
	Strategy Strategy

	// RetryIf determines if an error should trigger a retry.
	// Default: no error is retried.
	RetryIf func(err error) bool

	// OnRetry is called after a failed attempt, before the wait. attempt is
	// zero-based: the value n means retry n+1 is about to be scheduled.
	OnRetry func(attempt uint, err error)

	// Disabled short-circuits to a single attempt, for the global
	// enable/disable switches.
	Disabled bool
}

// Retry executes operations under a Strategy's delay sequence.
//
// Contract:
// - Concurrency: safe for concurrent use; all state is immutable after New.
// - Context: cancellation during an inter-attempt wait returns ctx.Err()
//   promptly; the wait is a suspension point, never a busy loop.
// - Errors: the terminal error is the last error the operation returned,
//   unwrapped, so its code survives for classification downstream.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.RetryIf == nil {
		config.RetryIf = func(error) bool { return false }
	}
	return &Retry{config: config}
}

// Execute runs the operation, replaying failures the classifier admits until
// the delay sequence is exhausted.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	if r.config.Disabled || len(r.config.Strategy.Delays) == 0 {
		return op(ctx)
	}

	return retry.Do(
		func() error { return op(ctx) },
		retry.Attempts(uint(len(r.config.Strategy.Delays))+1),
		retry.DelayType(r.delayFor),
		retry.RetryIf(r.config.RetryIf),
		retry.OnRetry(r.notify),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

// delayFor returns the literal sequence element for the given attempt. The
// attempt budget equals the sequence length, so n stays in range; the clamp
// guards against misconfigured callers reusing the func directly.
func (r *Retry) delayFor(n uint, _ error, _ *retry.Config) time.Duration {
	delays := r.config.Strategy.Delays
	if int(n) < len(delays) {
		return delays[n]
	}
	return delays[len(delays)-1]
}

func (r *Retry) notify(attempt uint, err error) {
	if r.config.OnRetry != nil {
		r.config.OnRetry(attempt, err)
	}
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
