package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultShardCount is the number of independently locked segments the
// store is split into.
const DefaultShardCount = 32

// StoreConfig controls store construction.
type StoreConfig struct {
	// Shards is the number of segments. Defaults to DefaultShardCount.
	Shards int
}

type entry struct {
	res       *Result
	owner     string
	createdAt time.Time
	expiresAt time.Time // zero means never expires
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// flight is the in-flight marker for one fingerprint. refs counts every
// caller sharing the build, the builder included. done is closed exactly
// once, after res and err are set, releasing all waiters with the builder's
// outcome.
type flight struct {
	done   chan struct{}
	res    *Result
	err    error
	refs   int
	cancel context.CancelFunc
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
	flights map[string]*flight
}

// Store is the in-memory cache engine: a sharded entry table plus a sharded
// in-flight table, no global lock. Safe for concurrent use.
type Store struct {
	shards []*shard

	hits          atomic.Int64
	misses        atomic.Int64
	stores        atomic.Int64
	rejected      atomic.Int64
	invalidations atomic.Int64
	pruned        atomic.Int64
}

var _ Engine = (*Store)(nil)

// NewStore creates a Store, applying defaults for zero config values.
func NewStore(cfg StoreConfig) *Store {
	n := cfg.Shards
	if n <= 0 {
		n = DefaultShardCount
	}
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{
			entries: make(map[string]*entry),
			flights: make(map[string]*flight),
		}
	}
	return &Store{shards: shards}
}

// shardFor picks the segment for a key by FNV-1a.
func (s *Store) shardFor(key string) *shard {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= prime32
	}
	return s.shards[h%uint32(len(s.shards))]
}

// TryGet returns the stored result for key. Expired entries are evicted on
// the spot and reported as misses.
func (s *Store) TryGet(key string) (*Result, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	if e.expired(time.Now()) {
		sh.mu.Lock()
		// Another goroutine may have replaced the entry since the read
		// lock was dropped; only evict the one observed expired.
		if cur, ok := sh.entries[key]; ok && cur == e {
			delete(sh.entries, key)
		}
		sh.mu.Unlock()
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return e.res, true
}

// GetOrBuild returns the cached result for key, attaching to an in-flight
// build when one exists, or running build itself otherwise.
//
// Contract:
//   - At most one build runs per key at a time; waiters receive the
//     builder's outcome, success or error, without re-executing.
//   - A successful result is stored only when policy allows it; the caller
//     receives it either way.
//   - Errors are never stored.
//   - ctx cancellation abandons this caller's wait only. The build keeps
//     running for remaining waiters; when the last waiter cancels, the
//     in-flight marker is released and the build context is cancelled.
func (s *Store) GetOrBuild(ctx context.Context, key string, policy Policy, build BuildFunc) (*Result, error) {
	sh := s.shardFor(key)
	now := time.Now()

	sh.mu.Lock()
	if e, ok := sh.entries[key]; ok && !e.expired(now) {
		sh.mu.Unlock()
		s.hits.Add(1)
		return e.res, nil
	}
	if f, ok := sh.flights[key]; ok {
		f.refs++
		sh.mu.Unlock()
		return s.wait(ctx, sh, key, f)
	}

	// This caller becomes the builder. The build context is detached from
	// the caller's cancellation so the build can outlive any single waiter;
	// it still carries the caller's values for tracing and logging.
	bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flight{done: make(chan struct{}), refs: 1, cancel: cancel}
	sh.flights[key] = f
	sh.mu.Unlock()

	go s.run(bctx, sh, key, f, policy, build)
	return s.wait(ctx, sh, key, f)
}

// run executes the build and publishes its outcome. The result is stored
// only if the flight is still registered: when every waiter cancelled, the
// marker was already released and a newer build may own the slot, so a late
// result is discarded rather than overwriting fresher state.
func (s *Store) run(ctx context.Context, sh *shard, key string, f *flight, policy Policy, build BuildFunc) {
	res, err := build(ctx)

	sh.mu.Lock()
	if sh.flights[key] == f {
		delete(sh.flights, key)
		if err == nil {
			if policy.ShouldStore(res) {
				now := time.Now()
				sh.entries[key] = &entry{
					res:       res,
					owner:     policy.Owner,
					createdAt: now,
					expiresAt: policy.expiresAt(now),
				}
				s.stores.Add(1)
			} else {
				s.rejected.Add(1)
			}
		}
	}
	sh.mu.Unlock()

	f.res, f.err = res, err
	close(f.done)
	f.cancel()
}

// wait blocks until the flight completes or ctx is cancelled.
func (s *Store) wait(ctx context.Context, sh *shard, key string, f *flight) (*Result, error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		s.leave(sh, key, f)
		return nil, ctx.Err()
	}
}

// leave drops one waiter from a flight. The last waiter out releases the
// marker and cancels the build.
func (s *Store) leave(sh *shard, key string, f *flight) {
	sh.mu.Lock()
	f.refs--
	last := f.refs == 0
	if last && sh.flights[key] == f {
		delete(sh.flights, key)
	}
	sh.mu.Unlock()
	if last {
		f.cancel()
	}
}

// Invalidate removes the entry for key if present. In-flight builds are
// untouched; a build racing an invalidation publishes into the slot the
// invalidation just cleared, which is the freshest result available.
func (s *Store) Invalidate(key string) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	_, ok := sh.entries[key]
	if ok {
		delete(sh.entries, key)
	}
	sh.mu.Unlock()
	if ok {
		s.invalidations.Add(1)
	}
	return ok
}

// InvalidateOwner removes every entry recorded for owner, returning the
// count. Works regardless of key hashing, which destroys key prefixes.
func (s *Store) InvalidateOwner(owner string) int {
	if owner == "" {
		return 0
	}
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if e.owner == owner {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	if removed > 0 {
		s.invalidations.Add(int64(removed))
	}
	return removed
}

// InvalidateAll empties the entry table, returning the count removed.
func (s *Store) InvalidateAll() int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		removed += len(sh.entries)
		sh.entries = make(map[string]*entry)
		sh.mu.Unlock()
	}
	if removed > 0 {
		s.invalidations.Add(int64(removed))
	}
	return removed
}

// Prune evicts expired entries across all shards, one shard lock at a time
// so readers of other shards are never blocked behind the sweep.
func (s *Store) Prune() int {
	now := time.Now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if e.expired(now) {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	if removed > 0 {
		s.pruned.Add(int64(removed))
	}
	return removed
}

// Stats returns a snapshot of store counters and table sizes.
func (s *Store) Stats() Stats {
	st := Stats{
		Hits:          s.hits.Load(),
		Misses:        s.misses.Load(),
		Stores:        s.stores.Load(),
		Rejected:      s.rejected.Load(),
		Invalidations: s.invalidations.Load(),
		Pruned:        s.pruned.Load(),
	}
	for _, sh := range s.shards {
		sh.mu.RLock()
		st.Entries += len(sh.entries)
		st.InFlight += len(sh.flights)
		sh.mu.RUnlock()
	}
	return st
}
