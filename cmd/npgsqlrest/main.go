// Command npgsqlrest serves PostgreSQL functions and procedures as HTTP
// endpoints. It reads a TOML configuration file, discovers routines from the
// database catalog, and runs until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/auth"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/cache"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/config"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/health"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/metadata"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/observe"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/pipeline"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/resilience"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/secret"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/server"
)

// version is stamped by the build.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to the TOML configuration file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "npgsqlrest:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, warnings, err := config.Load(ctx, configPath, secret.DefaultResolver())
	if err != nil {
		return err
	}

	logger := observe.NewLogger(cfg.Observe.ServiceName, cfg.Observe.LogLevel, cfg.Observe.LogFormat)
	logger.Info().Str("version", version).Str("config", configPath).Msg("starting")
	for _, w := range warnings {
		logger.Warn().Msg(w)
	}

	observer, err := observe.NewObserver(ctx, observe.Config{
		ServiceName:     cfg.Observe.ServiceName,
		Version:         version,
		TracesExporter:  cfg.Observe.TracesExporter,
		MetricsExporter: cfg.Observe.MetricsExporter,
		OTLPEndpoint:    cfg.Observe.OTLPEndpoint,
		SampleRatio:     cfg.Observe.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observer.Shutdown(flushCtx); err != nil {
			logger.Error().Err(err).Msg("telemetry shutdown")
		}
	}()

	pool, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	strategies, err := cfg.Strategies()
	if err != nil {
		return err
	}
	policies, err := cfg.Policies()
	if err != nil {
		return err
	}

	var engine cache.Engine
	if cfg.Cache.Enabled {
		store := cache.NewStore(cfg.StoreConfig())
		prunerCfg := cfg.PrunerConfig()
		prunerCfg.OnPrune = func(removed int, elapsed time.Duration) {
			if removed > 0 {
				logger.Debug().Int("removed", removed).Dur("elapsed", elapsed).Msg("cache pruned")
			}
		}
		pruner := cache.NewPruner(store, prunerCfg)
		pruner.Start()
		defer pruner.Stop()
		engine = store
	}

	var circuit *resilience.CircuitBreaker
	if cfg.Resilience.CircuitEnabled {
		circuit = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.Resilience.CircuitMaxFailures,
			ResetTimeout: cfg.Resilience.CircuitReset.Std(),
			OnStateChange: func(from, to resilience.State) {
				logger.Warn().Stringer("from", from).Stringer("to", to).Msg("circuit state changed")
			},
		})
	}
	var bulkhead *resilience.Bulkhead
	if cfg.Resilience.BulkheadMaxConcurrent > 0 {
		bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cfg.Resilience.BulkheadMaxConcurrent,
			MaxWait:       cfg.Resilience.BulkheadMaxWait.Std(),
		})
	}

	metrics, err := observe.NewMetrics(observer.Meter())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	pipe := pipeline.New(pipeline.Deps{
		DB:         pipeline.NewPoolDB(pool),
		Cache:      engine,
		Keyer:      cache.NewKeyer(cfg.KeyerConfig()),
		Strategies: strategies,
		Connection: cfg.ConnectionStrategy(),
		Circuit:    circuit,
		Bulkhead:   bulkhead,
		Policies:   policies,
		Tracer:     observe.NewTracer(observer.Tracer()),
		Metrics:    metrics,
	}, pipeline.Config{
		CacheEnabled:            cfg.Cache.Enabled,
		DefaultCacheTTL:         cfg.Cache.DefaultTTL.Std(),
		DefaultCacheMaxRows:     cfg.Cache.MaxRows,
		DefaultTimeout:          cfg.Resilience.DefaultTimeout.Std(),
		CommandRetryDisabled:    !cfg.Retry.CommandEnabled,
		ConnectionRetryDisabled: !cfg.Retry.ConnectionEnabled,
	})

	loader := metadata.NewLoader(metadata.NewDatabaseCatalog(pool), metadata.LoaderConfig{
		Schemas: cfg.Routes.Schemas,
		Prefix:  cfg.Routes.Prefix,
	}, logger)

	agg := health.NewAggregator()
	agg.Register("database", health.NewDatabaseChecker(pool, cfg.Database.ConnectTimeout.Std()))
	if engine != nil {
		agg.Register("cache", health.NewCacheChecker(engine))
	}
	agg.Register("runtime", health.NewRuntimeChecker(health.RuntimeCheckerConfig{}))

	authenticator, err := buildAuthenticator(cfg)
	if err != nil {
		return err
	}

	telemetry, err := observe.Telemetry(observer.Tracer(), observer.Meter())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	var metricsHandler http.Handler
	if cfg.Observe.MetricsExporter == "prometheus" {
		metricsHandler = promhttp.Handler()
	}

	srv := server.New(server.Deps{
		Invoker:       pipe,
		Source:        loader,
		Cache:         engine,
		Authenticator: authenticator,
		Health:        agg,
		Logger:        logger,
		Telemetry:     telemetry,
		Metrics:       metricsHandler,
	}, server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout.Std(),
		WriteTimeout:    cfg.Server.WriteTimeout.Std(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
		AdminRole:       cfg.Auth.AdminRole,
		Invalidation:    cfg.Cache.Enabled && cfg.Cache.Invalidation,
		RateEnabled:     cfg.Resilience.RateEnabled,
		RatePerSecond:   cfg.Resilience.RatePerSecond,
		RateBurst:       cfg.Resilience.RateBurst,
	})

	count, err := srv.Reload(ctx)
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	logger.Info().Int("routes", count).Strs("schemas", cfg.Routes.Schemas).Msg("routes loaded")

	return srv.Run(ctx)
}

// connect builds the pool and pings until the database answers or the
// startup wait is spent. A server often starts before its database does.
func connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := cfg.PoolConfig()
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	pingTimeout := cfg.Database.ConnectTimeout.Std()
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return struct{}{}, pool.Ping(pingCtx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(cfg.Database.StartupWait.Std()),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn().Err(err).Dur("retry_in", next).Msg("database not ready")
		}),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: %w", err)
	}
	return pool, nil
}

// buildAuthenticator assembles the configured authenticators, JWT before API
// keys so a bearer token is never matched against the key table.
func buildAuthenticator(cfg *config.Config) (auth.Authenticator, error) {
	if !cfg.Auth.Enabled {
		return nil, nil
	}

	var chain []auth.Authenticator
	jwtCfg := auth.JWTConfig{
		Issuer:   cfg.Auth.JWT.Issuer,
		Audience: cfg.Auth.JWT.Audience,
	}
	switch {
	case cfg.Auth.JWT.Secret != "":
		chain = append(chain, auth.NewJWTAuthenticator(jwtCfg, auth.NewStaticKeyProvider([]byte(cfg.Auth.JWT.Secret))))
	case cfg.Auth.JWT.JWKSURL != "":
		chain = append(chain, auth.NewJWTAuthenticator(jwtCfg, auth.NewJWKSKeyProvider(cfg.Auth.JWT.JWKSURL, 0)))
	}
	if len(cfg.Auth.APIKeys) > 0 {
		keys := make([]auth.APIKey, len(cfg.Auth.APIKeys))
		for i, k := range cfg.Auth.APIKeys {
			keys[i] = auth.APIKey{Hash: k.Hash, Principal: k.Principal, Roles: k.Roles}
		}
		chain = append(chain, auth.NewAPIKeyAuthenticator("", keys))
	}

	switch len(chain) {
	case 0:
		return nil, fmt.Errorf("auth: enabled but no JWT secret, JWKS URL, or API keys configured")
	case 1:
		return chain[0], nil
	default:
		return auth.NewCompositeAuthenticator(chain...), nil
	}
}
