// Package cachedvalue provides a stampede-safe, invalidatable cache for
// expensive asynchronous computations.
//
// # Overview
//
// Each key owns a single in-flight computation slot. The first caller for an
// unpopulated key runs the factory; concurrent callers for the same key wait
// on the same flight and share its result, so a burst of cache misses never
// fans out into duplicate work.
//
//	cache := cachedvalue.New[[]TagCount](cachedvalue.Options{
//		Name:       "refdata",
//		MaxEntries: 1024,
//		TTL:        15 * time.Minute,
//	})
//
//	tags, err := cache.GetOrCompute(ctx, "tags:"+userID, func(ctx context.Context) ([]TagCount, error) {
//		return loadVisibleTags(ctx, db, userID)
//	})
//
// # Invalidation
//
// Invalidate(key) evicts the key so the next read recomputes. The backing
// store is an expirable LRU; both explicit invalidation and TTL/size eviction
// reset the key's flight slot. The reset takes the slot lock non-blockingly:
// an evictor that loses the race leaves the current flight in place, which is
// stale-but-correct. Duplicated recomputation never happens.
//
// # Failure semantics
//
// A factory error propagates to every waiter of that flight and the flight is
// discarded, so one failed attempt does not poison the key. The next call
// starts a fresh computation.
//
// # Related Packages
//
//   - pkg/refdata: per-user reference data caches built on this primitive
//   - pkg/accessctl: effective access snapshots memoized per user
package cachedvalue
