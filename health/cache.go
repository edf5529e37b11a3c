package health

import (
	"context"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/cache"
)

// CacheChecker reports the result cache counters. The cache has no
// external dependency, so the checker never reports unhealthy; it exists
// to surface the counters on the detailed health endpoint.
type CacheChecker struct {
	engine cache.Engine
}

// NewCacheChecker creates a checker over the given cache engine.
func NewCacheChecker(engine cache.Engine) *CacheChecker {
	return &CacheChecker{engine: engine}
}

// Name returns the name of this checker.
func (c *CacheChecker) Name() string {
	return "cache"
}

// Check reports the current cache statistics.
func (c *CacheChecker) Check(ctx context.Context) Result {
	stats := c.engine.Stats()
	return Healthy("cache operational").WithDetails(map[string]any{
		"entries":       stats.Entries,
		"in_flight":     stats.InFlight,
		"hits":          stats.Hits,
		"misses":        stats.Misses,
		"stores":        stats.Stores,
		"rejected":      stats.Rejected,
		"invalidations": stats.Invalidations,
		"pruned":        stats.Pruned,
	})
}

var _ Checker = (*CacheChecker)(nil)
