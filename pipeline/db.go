package pipeline

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Conn is one leased database session. Release returns it to the pool.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Release()
}

// DB hands out sessions. The interface exists so executions can be tested
// without a server; PoolDB is the production implementation.
type DB interface {
	Acquire(ctx context.Context) (Conn, error)
}

// PoolDB adapts a pgx pool to the DB interface.
type PoolDB struct {
	pool *pgxpool.Pool
}

// NewPoolDB wraps a pool.
func NewPoolDB(pool *pgxpool.Pool) *PoolDB {
	return &PoolDB{pool: pool}
}

// Acquire leases a connection from the pool.
func (p *PoolDB) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

var _ DB = (*PoolDB)(nil)
