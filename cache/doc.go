// Package cache stores materialized routine results keyed by request
// fingerprint, with stampede protection for concurrent misses.
//
// A fingerprint is derived from the routine identity and the ordered,
// name-qualified parameter values, joined with a separator byte that cannot
// appear in rendered values. Long fingerprints are optionally replaced by a
// fixed-length SHA-256 digest; short ones are kept verbatim so operators can
// read them in logs and stats.
//
// # Patterns
//
//   - Single flight: the first caller to miss on a fingerprint becomes the
//     builder; concurrent callers attach to its completion signal and receive
//     the same payload or the same error, without executing the build twice.
//   - Sharded storage: entries and in-flight markers live in per-shard maps
//     under per-shard locks, so unrelated fingerprints never contend.
//   - Incremental pruning: the pruner sweeps one shard per pass, keeping
//     eviction from stalling readers behind a table-wide lock.
//
// # Usage
//
//	keyer := cache.NewKeyer(cache.KeyerConfig{})
//	store := cache.NewStore(cache.StoreConfig{})
//
//	key := keyer.DeriveKey("api.get_orders", []cache.Parameter{
//		{Name: "_customer_id", Text: "42"},
//	})
//	res, err := store.GetOrBuild(ctx, key, cache.Policy{TTL: time.Minute},
//		func(ctx context.Context) (*cache.Result, error) {
//			return execute(ctx)
//		})
//
// Waiters that cancel abandon only their own wait; the build keeps running
// for the remaining waiters. When the last waiter cancels, the build context
// is cancelled and the in-flight marker is released so the next request can
// start fresh.
package cache
