package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DatabaseChecker probes the PostgreSQL connection pool.
type DatabaseChecker struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewDatabaseChecker creates a checker that pings pool with the given
// timeout per check. A non-positive timeout defaults to 2 seconds.
func NewDatabaseChecker(pool *pgxpool.Pool, timeout time.Duration) *DatabaseChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &DatabaseChecker{pool: pool, timeout: timeout}
}

// Name returns the name of this checker.
func (c *DatabaseChecker) Name() string {
	return "database"
}

// Check pings the pool and reports connection utilization. The pool is
// degraded when every connection is checked out, unhealthy when the ping
// fails.
func (c *DatabaseChecker) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return Unhealthy("database unreachable", err)
	}

	stat := c.pool.Stat()
	details := map[string]any{
		"total_conns":    stat.TotalConns(),
		"idle_conns":     stat.IdleConns(),
		"acquired_conns": stat.AcquiredConns(),
		"max_conns":      stat.MaxConns(),
		"acquire_count":  stat.AcquireCount(),
	}

	if stat.MaxConns() > 0 && stat.AcquiredConns() >= stat.MaxConns() {
		return Degraded("connection pool saturated").WithDetails(details)
	}
	return Healthy("database reachable").WithDetails(details)
}

var _ Checker = (*DatabaseChecker)(nil)
