package cachedvalue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCompute_SingleFlight(t *testing.T) {
	cache := New[int](Options{Name: "test"})

	var calls atomic.Int64
	release := make(chan struct{})

	const waiters = 32
	results := make([]int, waiters)
	errs := make([]error, waiters)

	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.GetOrCompute(context.Background(), "k", func(ctx context.Context) (int, error) {
				calls.Add(1)
				<-release
				return 42, nil
			})
		}(i)
	}

	// Give the goroutines a moment to pile up on the same flight, then
	// let the single factory run finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "expected exactly one factory invocation")
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 42, results[i])
	}
}

func TestGetOrCompute_MemoizesValue(t *testing.T) {
	cache := New[string](Options{Name: "test"})

	var calls atomic.Int64
	factory := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "v", nil
	}

	for i := 0; i < 5; i++ {
		got, err := cache.GetOrCompute(context.Background(), "k", factory)
		require.NoError(t, err)
		assert.Equal(t, "v", got)
	}

	assert.Equal(t, int64(1), calls.Load())
}

func TestInvalidate_TriggersRecompute(t *testing.T) {
	cache := New[int](Options{Name: "test"})

	var calls atomic.Int64
	factory := func(ctx context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}

	first, err := cache.GetOrCompute(context.Background(), "k", factory)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	cache.Invalidate("k")

	second, err := cache.GetOrCompute(context.Background(), "k", factory)
	require.NoError(t, err)
	assert.Equal(t, 2, second, "post-invalidation read must recompute")

	// A second invalidation-free read reuses the fresh value.
	third, err := cache.GetOrCompute(context.Background(), "k", factory)
	require.NoError(t, err)
	assert.Equal(t, 2, third)
}

func TestGetOrCompute_ErrorDoesNotPoison(t *testing.T) {
	cache := New[int](Options{Name: "test"})

	boom := errors.New("query failed")
	var calls atomic.Int64

	_, err := cache.GetOrCompute(context.Background(), "k", func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	got, err := cache.GetOrCompute(context.Background(), "k", func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, int64(2), calls.Load())
}

func TestGetOrCompute_ErrorReachesAllWaiters(t *testing.T) {
	cache := New[int](Options{Name: "test"})

	boom := errors.New("transient")
	release := make(chan struct{})

	const waiters = 8
	errs := make([]error, waiters)

	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cache.GetOrCompute(context.Background(), "k", func(ctx context.Context) (int, error) {
				<-release
				return 0, boom
			})
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < waiters; i++ {
		assert.ErrorIs(t, errs[i], boom)
	}
}

func TestGetOrCompute_ContextCancelledWhileWaiting(t *testing.T) {
	cache := New[int](Options{Name: "test"})

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go func() {
		_, _ = cache.GetOrCompute(context.Background(), "k", func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()

	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cache.GetOrCompute(ctx, "k", func(ctx context.Context) (int, error) {
		t.Fatal("second caller must join the in-flight computation, not start its own")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvalidate_ConcurrentWithGet(t *testing.T) {
	cache := New[int](Options{Name: "test"})

	var calls atomic.Int64
	factory := func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrCompute(context.Background(), "k", factory)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			cache.Invalidate("k")
		}()
	}
	wg.Wait()

	// No torn state: a final read settles to a valid value.
	got, err := cache.GetOrCompute(context.Background(), "k", factory)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestInvalidateAll(t *testing.T) {
	cache := New[int](Options{Name: "test"})

	for _, key := range []string{"a", "b", "c"} {
		_, err := cache.GetOrCompute(context.Background(), key, func(ctx context.Context) (int, error) {
			return 1, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, cache.Len())

	cache.InvalidateAll()
	assert.Equal(t, 0, cache.Len())
}

func TestStats(t *testing.T) {
	cache := New[int](Options{Name: "test"})

	factory := func(ctx context.Context) (int, error) { return 1, nil }

	_, _ = cache.GetOrCompute(context.Background(), "k", factory)
	_, _ = cache.GetOrCompute(context.Background(), "k", factory)
	cache.Invalidate("k")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 0, stats.Entries)
}
