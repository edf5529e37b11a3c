package pipeline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/cache"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/observe"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/pgerror"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/resilience"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/routine"
)

// Invocation is one bound routine call: the routine and its arguments in
// parameter order.
type Invocation struct {
	Routine *routine.Routine
	Args    []routine.Argument
}

// Result is the HTTP outcome of an invocation, success or failure.
type Result struct {
	Status      int
	ContentType string
	Payload     []byte
}

// Config carries the defaults endpoints fall back to when their own
// settings are zero.
type Config struct {
	CacheEnabled        bool
	DefaultCacheTTL     time.Duration
	DefaultCacheMaxRows *int64

	// DefaultTimeout bounds the whole attempt sequence of an endpoint that
	// declares no timeout of its own.
	DefaultTimeout time.Duration

	CommandRetryDisabled    bool
	ConnectionRetryDisabled bool
}

// Deps are the pipeline's collaborators. Cache, Circuit and Bulkhead are
// optional; Tracer, Metrics, Keyer, Strategies and Policies default to
// inert or built-in implementations when nil.
type Deps struct {
	DB         DB
	Cache      cache.Engine
	Keyer      *cache.Keyer
	Strategies *resilience.Strategies
	Connection resilience.Strategy
	Circuit    *resilience.CircuitBreaker
	Bulkhead   *resilience.Bulkhead
	Policies   *pgerror.Policies
	Tracer     observe.Tracer
	Metrics    observe.Metrics
}

// Pipeline executes invocations. Safe for concurrent use.
type Pipeline struct {
	deps   Deps
	config Config
}

// New creates a pipeline, filling in defaults for optional dependencies.
func New(deps Deps, config Config) *Pipeline {
	if deps.Keyer == nil {
		deps.Keyer = cache.NewKeyer(cache.KeyerConfig{})
	}
	if deps.Strategies == nil {
		deps.Strategies, _ = resilience.NewStrategies(resilience.DefaultStrategyName,
			resilience.Strategy{Name: resilience.DefaultStrategyName})
	}
	if deps.Policies == nil {
		deps.Policies = pgerror.DefaultPolicies()
	}
	if deps.Tracer == nil {
		deps.Tracer = observe.NewNoopTracer()
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.NewNoopMetrics()
	}
	return &Pipeline{deps: deps, config: config}
}

// Execute runs one invocation to completion and returns the response to
// write. Failures come back as problem results, never as errors.
func (p *Pipeline) Execute(ctx context.Context, inv Invocation) Result {
	meta := metaFor(inv.Routine)
	ctx, span := p.deps.Tracer.StartSpan(ctx, meta)
	start := time.Now()

	res, err := p.execute(ctx, meta, inv)

	elapsed := time.Since(start)
	p.deps.Metrics.RecordExecution(ctx, meta, elapsed, err)
	p.deps.Tracer.EndSpan(span, err)

	if err != nil {
		return p.problem(ctx, inv, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("routine", meta.ID()).
		Int("status", res.Status).
		Int64("rows", res.RowCount).
		Dur("elapsed", elapsed).
		Msg("routine executed")

	return Result{Status: res.Status, ContentType: res.ContentType, Payload: res.Body}
}

// Invalidate removes the cached entry for this exact invocation and reports
// whether one was present. Non-cached endpoints always report false.
func (p *Pipeline) Invalidate(inv Invocation) bool {
	if !p.cacheable(inv.Routine) {
		return false
	}
	return p.deps.Cache.Invalidate(p.key(inv))
}

func (p *Pipeline) execute(ctx context.Context, meta observe.RoutineMeta, inv Invocation) (*cache.Result, error) {
	if !p.cacheable(inv.Routine) {
		p.deps.Metrics.RecordCache(ctx, meta, observe.CacheBypass)
		return p.run(ctx, meta, inv)
	}

	key := p.key(inv)
	zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("fingerprint", key)
	})

	if res, ok := p.deps.Cache.TryGet(key); ok {
		p.deps.Metrics.RecordCache(ctx, meta, observe.CacheHit)
		return res, nil
	}
	p.deps.Metrics.RecordCache(ctx, meta, observe.CacheMiss)

	policy := p.cachePolicy(inv.Routine)
	return p.deps.Cache.GetOrBuild(ctx, key, policy, func(bctx context.Context) (*cache.Result, error) {
		res, err := p.run(bctx, meta, inv)
		if err == nil && policy.ShouldStore(res) {
			p.deps.Metrics.RecordCache(bctx, meta, observe.CacheStore)
		}
		return res, err
	})
}

// run executes the statement under the endpoint's retry strategy, with the
// whole attempt sequence bounded by the endpoint timeout.
func (p *Pipeline) run(ctx context.Context, meta observe.RoutineMeta, inv Invocation) (*cache.Result, error) {
	strategy := p.deps.Strategies.Resolve(inv.Routine.Endpoint.RetryStrategy)

	attempts := 1
	retry := resilience.NewRetry(resilience.RetryConfig{
		Strategy: strategy,
		RetryIf:  pgerror.CommandRetryIf(strategy.Codes),
		OnRetry: func(attempt uint, err error) {
			attempts++
			code := pgerror.Code(err)
			p.deps.Metrics.RecordRetry(ctx, meta, code)
			zerolog.Ctx(ctx).Warn().Err(err).
				Uint("attempt", attempt+1).
				Str("sqlstate", code).
				Str("strategy", strategy.Name).
				Msg("statement retried")
		},
		Disabled: p.config.CommandRetryDisabled,
	})

	exec := resilience.NewExecutor(
		resilience.WithBulkhead(p.deps.Bulkhead),
		resilience.WithRetry(retry),
	)

	var res *cache.Result
	op := func(ctx context.Context) error {
		r, err := p.attempt(ctx, inv)
		if err != nil {
			return err
		}
		res = r
		return nil
	}

	timeout := inv.Routine.Endpoint.Timeout
	if timeout <= 0 {
		timeout = p.config.DefaultTimeout
	}
	if err := resilience.ExecuteWithTimeout(ctx, timeout, func(ctx context.Context) error {
		return exec.Execute(ctx, op)
	}); err != nil {
		return nil, err
	}

	if attempts > 1 {
		zerolog.Ctx(ctx).Info().
			Str("routine", meta.ID()).
			Int("attempts", attempts).
			Msg("statement succeeded after retry")
	}
	return res, nil
}

// attempt is one execution: lease a session, run the command, render the
// rows. Render errors count as attempt failures, because statement errors
// can surface from the row stream rather than from Query.
func (p *Pipeline) attempt(ctx context.Context, inv Invocation) (*cache.Result, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, routine.BuildCommand(inv.Routine, len(inv.Args)), routine.ArgumentValues(inv.Args)...)
	if err != nil {
		return nil, err
	}
	return renderRows(rows, inv.Routine)
}

// acquire leases a session under the circuit breaker and the connection
// retry strategy.
func (p *Pipeline) acquire(ctx context.Context) (Conn, error) {
	retry := resilience.NewRetry(resilience.RetryConfig{
		Strategy: p.deps.Connection,
		RetryIf:  pgerror.ConnectRetryIf(p.deps.Connection.Codes),
		OnRetry: func(attempt uint, err error) {
			zerolog.Ctx(ctx).Warn().Err(err).
				Uint("attempt", attempt+1).
				Msg("connection acquire retried")
		},
		Disabled: p.config.ConnectionRetryDisabled,
	})
	exec := resilience.NewExecutor(
		resilience.WithCircuitBreaker(p.deps.Circuit),
		resilience.WithRetry(retry),
	)

	var conn Conn
	err := exec.Execute(ctx, func(ctx context.Context) error {
		c, err := p.deps.DB.Acquire(ctx)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (p *Pipeline) cacheable(r *routine.Routine) bool {
	return p.config.CacheEnabled && p.deps.Cache != nil && r.Cacheable()
}

func (p *Pipeline) key(inv Invocation) string {
	params := make([]cache.Parameter, len(inv.Args))
	for i, a := range inv.Args {
		params[i] = cache.Parameter{Name: a.Name, Text: a.Text, Null: a.Null}
	}
	return p.deps.Keyer.DeriveKey(inv.Routine.Identity.String(), params)
}

func (p *Pipeline) cachePolicy(r *routine.Routine) cache.Policy {
	ttl := r.Endpoint.CacheTTL
	if ttl <= 0 {
		ttl = p.config.DefaultCacheTTL
	}
	maxRows := r.Endpoint.CacheMaxRows
	if maxRows == nil {
		maxRows = p.config.DefaultCacheMaxRows
	}
	return cache.Policy{Owner: r.Identity.String(), TTL: ttl, MaxRows: maxRows}
}

// problem maps a terminal failure to its response. Resilience rejections
// have fixed shapes; everything else goes through the endpoint's error
// policy.
func (p *Pipeline) problem(ctx context.Context, inv Invocation, err error) Result {
	var prob pgerror.Problem
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrBulkheadFull):
		prob = pgerror.Problem{Status: http.StatusServiceUnavailable, Title: "Service Unavailable"}
	case errors.Is(err, resilience.ErrRateLimitExceeded):
		prob = pgerror.Problem{Status: http.StatusTooManyRequests, Title: "Too Many Requests"}
	case errors.Is(err, context.Canceled) && !pgerror.IsTimeout(err):
		// The caller hung up; the status is for the logs, not the wire.
		prob = pgerror.Problem{Status: 499, Title: "Client Closed Request"}
	default:
		m := p.deps.Policies.MapError(inv.Routine.Endpoint.ErrorPolicy, err)
		prob = pgerror.NewProblem(m, pgerror.Code(err), pgerror.Message(err))
	}

	evt := zerolog.Ctx(ctx).Error()
	if prob.Status < 500 {
		evt = zerolog.Ctx(ctx).Warn()
	}
	evt.Err(err).
		Str("routine", inv.Routine.Identity.String()).
		Int("status", prob.Status).
		Str("sqlstate", prob.Code).
		Msg("invocation failed")

	return Result{Status: prob.Status, ContentType: pgerror.ProblemContentType, Payload: prob.JSON()}
}

func metaFor(r *routine.Routine) observe.RoutineMeta {
	return observe.RoutineMeta{
		Schema: r.Identity.Schema,
		Name:   r.Identity.Name,
		Method: r.Endpoint.Method,
		Path:   r.Endpoint.Path,
	}
}
