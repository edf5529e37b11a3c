package cache

import (
	"context"
	"time"
)

// Result is the materialized outcome of one routine execution, stored once
// and replayed to every reader. Body is the fully rendered response; IsSet
// marks results that came from a row set rather than a scalar or a single
// record.
type Result struct {
	Status      int
	ContentType string
	Body        []byte
	RowCount    int64
	IsSet       bool
}

// BuildFunc produces the result for a fingerprint on a cache miss. The
// context is cancelled only when every waiter sharing the build has given
// up, not when any single one of them does.
type BuildFunc func(ctx context.Context) (*Result, error)

// Policy describes how one endpoint's results are stored.
type Policy struct {
	// Owner identifies the routine the entry belongs to, for owner-scoped
	// invalidation. Optional.
	Owner string

	// TTL bounds entry lifetime. Zero or negative means no expiry.
	TTL time.Duration

	// MaxRows limits which row-set results are stored: nil means unlimited,
	// zero means row sets are never cached, a positive value caches sets
	// with at most that many rows. Results that are not row sets are always
	// storable.
	MaxRows *int64
}

// ShouldStore reports whether res is storable under the policy. Only row
// sets are subject to the row limit.
func (p Policy) ShouldStore(res *Result) bool {
	if res == nil {
		return false
	}
	if !res.IsSet || p.MaxRows == nil {
		return true
	}
	return *p.MaxRows > 0 && res.RowCount <= *p.MaxRows
}

func (p Policy) expiresAt(now time.Time) time.Time {
	if p.TTL <= 0 {
		return time.Time{}
	}
	return now.Add(p.TTL)
}

// Stats is a point-in-time snapshot of store activity.
type Stats struct {
	Hits          int64
	Misses        int64
	Stores        int64
	Rejected      int64
	Invalidations int64
	Pruned        int64
	Entries       int
	InFlight      int
}

// Engine is the storage contract the request pipeline depends on. The
// in-memory Store is the only implementation here; the interface keeps the
// pipeline testable and leaves room for a remote backend.
type Engine interface {
	TryGet(key string) (*Result, bool)
	GetOrBuild(ctx context.Context, key string, policy Policy, build BuildFunc) (*Result, error)
	Invalidate(key string) bool
	InvalidateOwner(owner string) int
	InvalidateAll() int
	Prune() int
	Stats() Stats
}
