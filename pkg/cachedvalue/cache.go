package cachedvalue

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Factory computes the value for a key. It runs at most once per flight,
// regardless of how many callers are waiting.
type Factory[V any] func(ctx context.Context) (V, error)

// Options configures a Cache.
type Options struct {
	// Name labels the cache in metrics.
	Name string

	// MaxEntries bounds the backing LRU. Defaults to 1024.
	MaxEntries int

	// TTL expires entries after a fixed duration. Zero disables expiry.
	TTL time.Duration
}

// Cache memoizes expensive asynchronous computations per key with
// single-flight population and explicit invalidation.
type Cache[V any] struct {
	mu      sync.Mutex // guards slot lookup/creation in the LRU
	slots   *lru.LRU[string, *slot[V]]
	metrics *Metrics
}

// slot holds the current flight for one key. A nil flight means the next
// caller starts a fresh computation.
type slot[V any] struct {
	mu     sync.Mutex
	flight *flight[V]
}

// flight is one execution of a factory. done is closed exactly once, after
// val/err are set.
type flight[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// New creates a cache with the given options.
func New[V any](opts Options) *Cache[V] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1024
	}

	c := &Cache[V]{
		metrics: newMetrics(opts.Name),
	}
	c.slots = lru.NewLRU(opts.MaxEntries, c.onEvict, opts.TTL)
	return c
}

// GetOrCompute returns the cached value for key, computing it with fn if the
// key is unpopulated. Concurrent callers during the first execution observe
// exactly one invocation of fn and share its result. A factory error reaches
// every waiter of that flight and is not cached.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, fn Factory[V]) (V, error) {
	s := c.slotFor(key)

	s.mu.Lock()
	if f := s.flight; f != nil {
		s.mu.Unlock()
		c.metrics.recordHit()
		return c.await(ctx, f)
	}

	f := &flight[V]{done: make(chan struct{})}
	s.flight = f
	s.mu.Unlock()
	c.metrics.recordMiss()

	f.val, f.err = fn(ctx)
	if f.err != nil {
		// Drop the failed flight before waking waiters so the next
		// call retries instead of observing a poisoned entry.
		s.mu.Lock()
		if s.flight == f {
			s.flight = nil
		}
		s.mu.Unlock()
	}
	close(f.done)

	return f.val, f.err
}

// Invalidate evicts key. The next GetOrCompute triggers exactly one fresh
// computation. Callers already waiting on an in-flight computation still
// receive its result; that value is simply not retained.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	c.slots.Remove(key)
	c.mu.Unlock()
}

// InvalidateAll evicts every key.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	c.slots.Purge()
	c.mu.Unlock()
}

// Len reports the number of populated keys.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots.Len()
}

// CacheStats is a point-in-time snapshot of a cache's counters.
type CacheStats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Stats exposes hit/miss/eviction counts for tests and for mirroring into
// Prometheus.
func (c *Cache[V]) Stats() CacheStats {
	return CacheStats{
		Entries:   c.Len(),
		Hits:      c.metrics.hits.Load(),
		Misses:    c.metrics.misses.Load(),
		Evictions: c.metrics.evictions.Load(),
	}
}

func (c *Cache[V]) slotFor(key string) *slot[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.slots.Get(key); ok {
		return s
	}
	s := &slot[V]{}
	c.slots.Add(key, s)
	return s
}

func (c *Cache[V]) await(ctx context.Context, f *flight[V]) (V, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// onEvict fires on explicit removal, TTL expiry, and size-based eviction.
// The flight reset is guarded by a non-blocking lock: losing the race to a
// concurrent reader leaves the current flight in place, which is safe. The
// key is already gone from the LRU, so the next lookup recomputes either way.
func (c *Cache[V]) onEvict(_ string, s *slot[V]) {
	c.metrics.recordEviction()
	if s.mu.TryLock() {
		s.flight = nil
		s.mu.Unlock()
	}
}
