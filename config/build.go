package config

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/cache"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/pgerror"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/resilience"
)

func (sc StrategyConfig) strategy(name string) resilience.Strategy {
	delays := make([]time.Duration, len(sc.Delays))
	for i, d := range sc.Delays {
		delays[i] = d.Std()
	}
	return resilience.Strategy{
		Name:   name,
		Delays: delays,
		Codes:  resilience.NewCodeSet(sc.Codes...),
	}
}

// Strategies materializes the named command-retry strategies with their
// validated default fallback.
func (c *Config) Strategies() (*resilience.Strategies, error) {
	all := make([]resilience.Strategy, 0, len(c.Retry.Strategies))
	for name, sc := range c.Retry.Strategies {
		all = append(all, sc.strategy(name))
	}
	s, err := resilience.NewStrategies(c.Retry.DefaultStrategy, all...)
	if err != nil {
		return nil, fmt.Errorf("config: retry strategies: %w", err)
	}
	return s, nil
}

// ConnectionStrategy materializes the unnamed session-establishment
// strategy.
func (c *Config) ConnectionStrategy() resilience.Strategy {
	return c.Retry.Connection.strategy("connection")
}

// Policies materializes the error-policy registry. Every configured policy
// overlays the built-in table, so a policy only lists its deviations; the
// built-in table itself is always registered under "default".
func (c *Config) Policies() (*pgerror.Policies, error) {
	all := make(map[string]pgerror.Policy, len(c.Errors.Policies)+1)
	all[pgerror.DefaultPolicyName] = pgerror.DefaultPolicy()
	for name, overrides := range c.Errors.Policies {
		p := pgerror.DefaultPolicy()
		for code, m := range overrides {
			p[code] = pgerror.Mapping{Status: m.Status, Title: m.Title}
		}
		all[name] = p
	}
	timeout := pgerror.Mapping{Status: c.Errors.Timeout.Status, Title: c.Errors.Timeout.Title}
	p, err := pgerror.NewPolicies(c.Errors.DefaultPolicy, timeout, all)
	if err != nil {
		return nil, fmt.Errorf("config: error policies: %w", err)
	}
	return p, nil
}

// KeyerConfig exposes the fingerprint hashing settings.
func (c *Config) KeyerConfig() cache.KeyerConfig {
	return cache.KeyerConfig{
		HashLongKeys: c.Cache.HashLongKeys,
		Threshold:    c.Cache.HashThreshold,
	}
}

// StoreConfig exposes the cache store settings.
func (c *Config) StoreConfig() cache.StoreConfig {
	return cache.StoreConfig{Shards: c.Cache.Shards}
}

// PrunerConfig exposes the sweep interval; the caller attaches its OnPrune
// hook for logging and metrics.
func (c *Config) PrunerConfig() cache.PrunerConfig {
	return cache.PrunerConfig{Interval: c.Cache.PruneInterval.Std()}
}

// PoolConfig parses the resolved connection string and applies the pool
// sizing overrides.
func (c *Config) PoolConfig() (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.Database.ConnString)
	if err != nil {
		return nil, fmt.Errorf("config: parse connection string: %w", err)
	}
	if c.Database.MaxConns > 0 {
		pc.MaxConns = c.Database.MaxConns
	}
	if c.Database.MinConns > 0 {
		pc.MinConns = c.Database.MinConns
	}
	if d := c.Database.ConnectTimeout.Std(); d > 0 {
		pc.ConnConfig.ConnectTimeout = d
	}
	return pc, nil
}
