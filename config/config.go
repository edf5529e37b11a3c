package config

import (
	"fmt"
	"time"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/pgerror"
)

// Config is the full service configuration tree. See Default for the
// built-in values and Load for precedence.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Cache      CacheConfig      `toml:"cache"`
	Retry      RetryConfig      `toml:"retry"`
	Errors     ErrorsConfig     `toml:"errors"`
	Routes     RoutesConfig     `toml:"routes"`
	Auth       AuthConfig       `toml:"auth"`
	Resilience ResilienceConfig `toml:"resilience"`
	Observe    ObserveConfig    `toml:"observe"`
}

type ServerConfig struct {
	Addr            string   `toml:"addr" env:"SERVER_ADDR"`
	ReadTimeout     Duration `toml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    Duration `toml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	// ConnString accepts ${VAR} expansion and secretref references.
	ConnString     string   `toml:"connection_string" env:"DATABASE_URL"`
	MaxConns       int32    `toml:"max_conns" env:"DATABASE_MAX_CONNS"`
	MinConns       int32    `toml:"min_conns" env:"DATABASE_MIN_CONNS"`
	ConnectTimeout Duration `toml:"connect_timeout" env:"DATABASE_CONNECT_TIMEOUT"`

	// StartupWait bounds the exponential-backoff ping loop at boot.
	StartupWait Duration `toml:"startup_wait" env:"DATABASE_STARTUP_WAIT"`
}

type CacheConfig struct {
	Enabled       bool     `toml:"enabled" env:"CACHE_ENABLED"`
	PruneInterval Duration `toml:"prune_interval" env:"CACHE_PRUNE_INTERVAL"`
	DefaultTTL    Duration `toml:"default_expires_in" env:"CACHE_DEFAULT_EXPIRES_IN"`

	// MaxRows is the default row limit for caching set results: absent
	// means unlimited, zero means sets are never cached.
	MaxRows *int64 `toml:"max_rows" env:"CACHE_MAX_ROWS"`

	HashLongKeys  bool `toml:"hash_long_keys" env:"CACHE_HASH_LONG_KEYS"`
	HashThreshold int  `toml:"hash_threshold" env:"CACHE_HASH_THRESHOLD"`
	Shards        int  `toml:"shards" env:"CACHE_SHARDS"`

	// Invalidation exposes a POST <path>/invalidate companion for every
	// cached endpoint.
	Invalidation bool `toml:"invalidation_endpoints" env:"CACHE_INVALIDATION_ENDPOINTS"`
}

type RetryConfig struct {
	CommandEnabled    bool   `toml:"command_enabled" env:"RETRY_COMMAND_ENABLED"`
	ConnectionEnabled bool   `toml:"connection_enabled" env:"RETRY_CONNECTION_ENABLED"`
	DefaultStrategy   string `toml:"default_strategy" env:"RETRY_DEFAULT_STRATEGY"`

	Connection StrategyConfig            `toml:"connection"`
	Strategies map[string]StrategyConfig `toml:"strategies"`
}

// StrategyConfig is one retry strategy: the literal delay sequence awaited
// between attempts and the SQLSTATEs considered transient.
type StrategyConfig struct {
	Delays []Duration `toml:"delays"`
	Codes  []string   `toml:"codes"`
}

type ErrorsConfig struct {
	DefaultPolicy string        `toml:"default_policy" env:"ERRORS_DEFAULT_POLICY"`
	Timeout       MappingConfig `toml:"timeout"`

	// Policies maps policy name to SQLSTATE to response. Each named policy
	// overlays the built-in table, so only deviations need listing.
	Policies map[string]map[string]MappingConfig `toml:"policies"`
}

type MappingConfig struct {
	Status int    `toml:"status"`
	Title  string `toml:"title"`
}

type RoutesConfig struct {
	Schemas []string `toml:"schemas" env:"ROUTES_SCHEMAS" envSeparator:","`
	Prefix  string   `toml:"prefix" env:"ROUTES_PREFIX"`
}

type AuthConfig struct {
	Enabled bool `toml:"enabled" env:"AUTH_ENABLED"`

	// AdminRole guards the /admin surface.
	AdminRole string `toml:"admin_role" env:"AUTH_ADMIN_ROLE"`

	JWT     JWTConfig      `toml:"jwt"`
	APIKeys []APIKeyConfig `toml:"api_keys"`
}

type JWTConfig struct {
	Issuer   string `toml:"issuer" env:"AUTH_JWT_ISSUER"`
	Audience string `toml:"audience" env:"AUTH_JWT_AUDIENCE"`

	// Secret enables HS256 validation; accepts secretref references.
	// JWKSURL enables RS256/ES256 validation against a published key set.
	// Exactly one of the two must be set when auth is enabled with JWT.
	Secret  string `toml:"secret" env:"AUTH_JWT_SECRET"`
	JWKSURL string `toml:"jwks_url" env:"AUTH_JWT_JWKS_URL"`
}

type APIKeyConfig struct {
	// Hash is the SHA-256 hex digest of the key; plaintext keys never
	// appear in configuration.
	Hash      string   `toml:"hash"`
	Principal string   `toml:"principal"`
	Roles     []string `toml:"roles"`
}

type ResilienceConfig struct {
	CircuitEnabled     bool     `toml:"circuit_enabled" env:"RESILIENCE_CIRCUIT_ENABLED"`
	CircuitMaxFailures int      `toml:"circuit_max_failures" env:"RESILIENCE_CIRCUIT_MAX_FAILURES"`
	CircuitReset       Duration `toml:"circuit_reset" env:"RESILIENCE_CIRCUIT_RESET"`

	// BulkheadMaxConcurrent of zero leaves the bulkhead uninstalled.
	BulkheadMaxConcurrent int      `toml:"bulkhead_max_concurrent" env:"RESILIENCE_BULKHEAD_MAX_CONCURRENT"`
	BulkheadMaxWait       Duration `toml:"bulkhead_max_wait" env:"RESILIENCE_BULKHEAD_MAX_WAIT"`

	RateEnabled   bool    `toml:"rate_enabled" env:"RESILIENCE_RATE_ENABLED"`
	RatePerSecond float64 `toml:"rate_per_second" env:"RESILIENCE_RATE_PER_SECOND"`
	RateBurst     int     `toml:"rate_burst" env:"RESILIENCE_RATE_BURST"`

	// DefaultTimeout bounds each endpoint execution unless annotated.
	DefaultTimeout Duration `toml:"default_timeout" env:"RESILIENCE_DEFAULT_TIMEOUT"`
}

type ObserveConfig struct {
	ServiceName     string  `toml:"service_name" env:"OBSERVE_SERVICE_NAME"`
	LogLevel        string  `toml:"log_level" env:"OBSERVE_LOG_LEVEL"`
	LogFormat       string  `toml:"log_format" env:"OBSERVE_LOG_FORMAT"`
	TracesExporter  string  `toml:"traces_exporter" env:"OBSERVE_TRACES_EXPORTER"`
	MetricsExporter string  `toml:"metrics_exporter" env:"OBSERVE_METRICS_EXPORTER"`
	OTLPEndpoint    string  `toml:"otlp_endpoint" env:"OBSERVE_OTLP_ENDPOINT"`
	SampleRatio     float64 `toml:"sample_ratio" env:"OBSERVE_SAMPLE_RATIO"`
}

// Default returns the built-in configuration. Loaded files and environment
// overrides are applied on top of these values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Database: DatabaseConfig{
			MaxConns:       16,
			ConnectTimeout: Duration(5 * time.Second),
			StartupWait:    Duration(30 * time.Second),
		},
		Cache: CacheConfig{
			Enabled:       true,
			PruneInterval: Duration(60 * time.Second),
			DefaultTTL:    Duration(5 * time.Minute),
			HashLongKeys:  true,
			HashThreshold: 128,
			Shards:        32,
			Invalidation:  true,
		},
		Retry: RetryConfig{
			CommandEnabled:    true,
			ConnectionEnabled: true,
			DefaultStrategy:   "default",
			Connection: StrategyConfig{
				Delays: durationsOf(500*time.Millisecond, time.Second, 2*time.Second, 5*time.Second),
				Codes:  pgerror.DefaultConnectionRetryCodes,
			},
			Strategies: map[string]StrategyConfig{
				"default": {
					Delays: durationsOf(50*time.Millisecond, 200*time.Millisecond, time.Second),
					Codes:  pgerror.DefaultCommandRetryCodes,
				},
			},
		},
		Errors: ErrorsConfig{
			DefaultPolicy: "default",
			Timeout:       MappingConfig{Status: 504, Title: "Gateway Timeout"},
		},
		Routes: RoutesConfig{
			Schemas: []string{"public"},
			Prefix:  "/api",
		},
		Auth: AuthConfig{
			AdminRole: "admin",
		},
		Resilience: ResilienceConfig{
			CircuitEnabled:     true,
			CircuitMaxFailures: 5,
			CircuitReset:       Duration(30 * time.Second),
			RatePerSecond:      100,
			RateBurst:          20,
			DefaultTimeout:     Duration(30 * time.Second),
		},
		Observe: ObserveConfig{
			ServiceName:     "npgsqlrest",
			LogLevel:        "info",
			LogFormat:       "json",
			TracesExporter:  "none",
			MetricsExporter: "prometheus",
			SampleRatio:     1.0,
		},
	}
}

func durationsOf(ds ...time.Duration) []Duration {
	out := make([]Duration, len(ds))
	for i, d := range ds {
		out[i] = Duration(d)
	}
	return out
}

// Validate checks cross-field constraints that decoding cannot. Builders
// perform their own registry validation on top of this.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr is required")
	}
	if c.Database.ConnString == "" {
		return fmt.Errorf("config: database.connection_string is required")
	}
	if len(c.Routes.Schemas) == 0 {
		return fmt.Errorf("config: routes.schemas must name at least one schema")
	}
	if c.Cache.HashThreshold < 0 {
		return fmt.Errorf("config: cache.hash_threshold must not be negative")
	}
	if c.Cache.MaxRows != nil && *c.Cache.MaxRows < 0 {
		return fmt.Errorf("config: cache.max_rows must not be negative")
	}
	if r := c.Observe.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("config: observe.sample_ratio %v outside [0, 1]", r)
	}
	switch c.Observe.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: observe.log_level %q unknown", c.Observe.LogLevel)
	}
	if c.Auth.Enabled && c.Auth.JWT.Secret != "" && c.Auth.JWT.JWKSURL != "" {
		return fmt.Errorf("config: auth.jwt.secret and auth.jwt.jwks_url are mutually exclusive")
	}
	for i, k := range c.Auth.APIKeys {
		if len(k.Hash) != 64 {
			return fmt.Errorf("config: auth.api_keys[%d].hash must be a SHA-256 hex digest", i)
		}
		if k.Principal == "" {
			return fmt.Errorf("config: auth.api_keys[%d].principal is required", i)
		}
	}
	return nil
}
