package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/auth"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/cache"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/health"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/observe"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/pgerror"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/pipeline"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/resilience"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/routine"
)

// Invoker executes bound invocations and drops cached results.
// *pipeline.Pipeline is the production implementation.
type Invoker interface {
	Execute(ctx context.Context, inv pipeline.Invocation) pipeline.Result
	Invalidate(inv pipeline.Invocation) bool
}

// RoutineSource produces the current routine set on demand.
// *metadata.Loader is the production implementation.
type RoutineSource interface {
	Load(ctx context.Context) ([]*routine.Routine, error)
}

// Config carries the HTTP surface settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// AdminRole gates the admin surface when an authenticator is wired.
	AdminRole string

	// Invalidation registers a POST <path>/invalidate companion for every
	// cached endpoint.
	Invalidation bool

	RateEnabled   bool
	RatePerSecond float64
	RateBurst     int
}

// Deps are the server's collaborators. Cache, Authenticator, Telemetry and
// Metrics are optional; a nil Health gets an empty aggregator so the probe
// endpoints always answer.
type Deps struct {
	Invoker       Invoker
	Source        RoutineSource
	Cache         cache.Engine
	Authenticator auth.Authenticator
	Health        *health.Aggregator
	Logger        zerolog.Logger

	// Telemetry is the per-request OTel middleware, when tracing is on.
	Telemetry func(http.Handler) http.Handler

	// Metrics serves GET /metrics, when the Prometheus exporter is on.
	Metrics http.Handler
}

// Server dispatches requests against the current routing table. The table
// is replaced wholesale on Reload; everything else is immutable after New.
type Server struct {
	config  Config
	deps    Deps
	table   atomic.Pointer[Table]
	limiter *resilience.RateLimiter
	router  chi.Router
}

// New assembles the router and middleware stack. The routing table starts
// empty; call Reload to populate it.
func New(deps Deps, config Config) *Server {
	if deps.Health == nil {
		deps.Health = health.NewAggregator()
	}
	s := &Server{config: config, deps: deps}
	if config.RateEnabled {
		s.limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:  config.RatePerSecond,
			Burst: config.RateBurst,
		})
	}
	empty, _ := NewTable(nil, false)
	s.table.Store(empty)
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(observe.RequestLogging(s.deps.Logger)...)
	if s.deps.Telemetry != nil {
		r.Use(s.deps.Telemetry)
	}
	r.Use(chimiddleware.Recoverer)

	// Probes and metrics stay outside rate limiting and auth.
	r.Get("/healthz", health.LivenessHandler())
	r.Get("/readyz", health.ReadinessHandler(s.deps.Health))
	r.Get("/health", health.DetailedHandler(s.deps.Health))
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}

	r.Group(func(g chi.Router) {
		if s.limiter != nil {
			g.Use(s.rateLimit)
		}
		g.Use(auth.Middleware(s.deps.Authenticator))
		g.Post("/admin/reload", s.handleReload)
		g.Get("/admin/cache/stats", s.handleCacheStats)
		g.Handle("/*", http.HandlerFunc(s.dispatch))
	})
	return r
}

// Handler returns the assembled router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Reload loads the routine set and swaps the routing table, returning the
// number of dispatchable entries. Registration problems are logged as
// warnings, never fatal, so one odd routine cannot block a reload.
func (s *Server) Reload(ctx context.Context) (int, error) {
	routines, err := s.deps.Source.Load(ctx)
	if err != nil {
		return 0, err
	}
	table, warnings := NewTable(routines, s.config.Invalidation)
	for _, w := range warnings {
		s.deps.Logger.Warn().Msg(w)
	}
	s.table.Store(table)
	s.deps.Logger.Info().Int("routes", table.Len()).Msg("routing table swapped")
	return table.Len(), nil
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// the shutdown grace.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info().Str("addr", s.config.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	grace := s.config.ShutdownTimeout
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.deps.Logger.Info().Msg("server stopped")
	return nil
}

// dispatch resolves dynamic routes against the current table.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.table.Load().Lookup(r.Method, r.URL.Path)
	if !ok {
		s.writeProblem(w, r, pgerror.Problem{Status: http.StatusNotFound, Title: "Not Found"}, nil)
		return
	}
	if rt.invalidate {
		s.invalidate(w, r, rt.routine)
		return
	}
	s.invoke(w, r, rt.routine)
}

func (s *Server) invoke(w http.ResponseWriter, r *http.Request, rt *routine.Routine) {
	if !s.authorized(w, r, rt) {
		return
	}
	args, err := bindArguments(rt, r)
	if err != nil {
		s.writeProblem(w, r, pgerror.Problem{
			Status: http.StatusBadRequest,
			Title:  "Bad Request",
			Detail: err.Error(),
		}, err)
		return
	}
	res := s.deps.Invoker.Execute(r.Context(), pipeline.Invocation{Routine: rt, Args: args})
	if res.ContentType != "" {
		w.Header().Set("Content-Type", res.ContentType)
	}
	w.WriteHeader(res.Status)
	if len(res.Payload) > 0 {
		_, _ = w.Write(res.Payload)
	}
}

// invalidate drops the cached entry for the bound invocation. 204 either
// way; callers cannot probe cache contents through the response.
func (s *Server) invalidate(w http.ResponseWriter, r *http.Request, rt *routine.Routine) {
	if !s.authorized(w, r, rt) {
		return
	}
	args, err := bindArguments(rt, r)
	if err != nil {
		s.writeProblem(w, r, pgerror.Problem{
			Status: http.StatusBadRequest,
			Title:  "Bad Request",
			Detail: err.Error(),
		}, err)
		return
	}
	s.deps.Invoker.Invalidate(pipeline.Invocation{Routine: rt, Args: args})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if !s.adminAuthorized(w, r) {
		return
	}
	count, err := s.Reload(r.Context())
	if err != nil {
		s.writeProblem(w, r, pgerror.Problem{Status: http.StatusServiceUnavailable, Title: "Service Unavailable"}, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Routes int `json:"routes"`
	}{Routes: count})
}

// statsResponse mirrors cache.Stats with wire-friendly field names.
type statsResponse struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Stores        int64 `json:"stores"`
	Rejected      int64 `json:"rejected"`
	Invalidations int64 `json:"invalidations"`
	Pruned        int64 `json:"pruned"`
	Entries       int   `json:"entries"`
	InFlight      int   `json:"in_flight"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if !s.adminAuthorized(w, r) {
		return
	}
	var st cache.Stats
	if s.deps.Cache != nil {
		st = s.deps.Cache.Stats()
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Hits:          st.Hits,
		Misses:        st.Misses,
		Stores:        st.Stores,
		Rejected:      st.Rejected,
		Invalidations: st.Invalidations,
		Pruned:        st.Pruned,
		Entries:       st.Entries,
		InFlight:      st.InFlight,
	})
}

// authorized enforces the endpoint's auth settings, writing the problem
// response itself when access is denied.
func (s *Server) authorized(w http.ResponseWriter, r *http.Request, rt *routine.Routine) bool {
	ep := rt.Endpoint
	if ep.Anonymous {
		return true
	}
	err := auth.Authorize(auth.IdentityFromContext(r.Context()), ep.RequiresAuth, ep.Roles)
	if err == nil {
		return true
	}
	s.writeProblem(w, r, authProblem(err), err)
	return false
}

// adminAuthorized gates the admin surface. Without an authenticator the
// surface is open; deployments that enable auth get role-gated admin.
func (s *Server) adminAuthorized(w http.ResponseWriter, r *http.Request) bool {
	if s.deps.Authenticator == nil {
		return true
	}
	err := auth.Authorize(auth.IdentityFromContext(r.Context()), true, []string{s.config.AdminRole})
	if err == nil {
		return true
	}
	s.writeProblem(w, r, authProblem(err), err)
	return false
}

// authProblem maps an authorization failure to its problem response. Detail
// stays empty; the title is all a caller needs.
func authProblem(err error) pgerror.Problem {
	if errors.Is(err, auth.ErrForbidden) {
		return pgerror.Problem{Status: http.StatusForbidden, Title: "Forbidden"}
	}
	return pgerror.Problem{Status: http.StatusUnauthorized, Title: "Unauthorized"}
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.writeProblem(w, r, pgerror.Problem{Status: http.StatusTooManyRequests, Title: "Too Many Requests"},
				resilience.ErrRateLimitExceeded)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeProblem renders a problem document for failures raised by the server
// itself; pipeline failures arrive pre-rendered through Execute.
func (s *Server) writeProblem(w http.ResponseWriter, r *http.Request, prob pgerror.Problem, err error) {
	evt := zerolog.Ctx(r.Context()).Debug()
	if prob.Status >= http.StatusInternalServerError {
		evt = zerolog.Ctx(r.Context()).Error()
	}
	evt.Err(err).Int("status", prob.Status).Str("path", r.URL.Path).Msg("request rejected")

	w.Header().Set("Content-Type", pgerror.ProblemContentType)
	w.WriteHeader(prob.Status)
	_, _ = w.Write(prob.JSON())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
