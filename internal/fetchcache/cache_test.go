package fetchcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lng-monitor/relay/internal/catalog"
	"github.com/lng-monitor/relay/internal/snapshot"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingFetch returns value after waiting for release, counting calls.
func countingFetch(calls *atomic.Int32, release <-chan struct{}, value any, err error) FetchFunc {
	return func(ctx context.Context) (any, error) {
		calls.Add(1)
		if release != nil {
			<-release
		}
		return value, err
	}
}

func TestGetStoresAndServesFromCache(t *testing.T) {
	clock := newFakeClock()
	cache := New(WithClock(clock.Now))

	var calls atomic.Int32
	fetch := countingFetch(&calls, nil, "v1", nil)

	value, err := cache.Get(context.Background(), "k", fetch, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	clock.Advance(30 * time.Second)
	value, err = cache.Get(context.Background(), "k", fetch, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	assert.Equal(t, int32(1), calls.Load())
	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Fetches)
	assert.Equal(t, 1, stats.Entries)
}

func TestGetExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	cache := New(WithClock(clock.Now))

	var calls atomic.Int32
	fetch := countingFetch(&calls, nil, "v", nil)

	_, err := cache.Get(context.Background(), "k", fetch, time.Minute)
	require.NoError(t, err)

	// Exactly at the boundary the entry is still valid
	clock.Advance(time.Minute)
	_, err = cache.Get(context.Background(), "k", fetch, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(time.Millisecond)
	_, err = cache.Get(context.Background(), "k", fetch, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetNonPositiveTTLAlwaysFetches(t *testing.T) {
	cache := New()

	var calls atomic.Int32
	fetch := countingFetch(&calls, nil, "v", nil)

	for _, ttl := range []time.Duration{0, -time.Second, 0} {
		_, err := cache.Get(context.Background(), "k", fetch, ttl)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 0, cache.Len())
}

func TestConcurrentGetsShareOneFetch(t *testing.T) {
	cache := New()

	var calls atomic.Int32
	release := make(chan struct{})
	value := &struct{ n int }{n: 7}
	fetch := countingFetch(&calls, release, value, nil)

	const waiters = 50
	var wg sync.WaitGroup
	results := make([]any, waiters)
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Get(context.Background(), "shared", fetch, time.Minute)
		}(i)
	}

	// Let every waiter reach the in-flight call before the fetch returns
	require.Eventually(t, func() bool {
		return cache.Stats().Misses == waiters
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, value, results[i])
	}

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Fetches)
	assert.LessOrEqual(t, stats.Joins, uint64(waiters-1))
}

func TestConcurrentGetsShareError(t *testing.T) {
	cache := New()

	var calls atomic.Int32
	release := make(chan struct{})
	boom := errors.New("upstream unavailable")
	fetch := countingFetch(&calls, release, nil, boom)

	const waiters = 10
	var wg sync.WaitGroup
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cache.Get(context.Background(), "k", fetch, time.Minute)
		}(i)
	}

	require.Eventually(t, func() bool {
		return cache.Stats().Misses == waiters
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}

	// Failures are never cached
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, uint64(1), cache.Stats().FetchErrors)

	var retry atomic.Int32
	value, err := cache.Get(context.Background(), "k", countingFetch(&retry, nil, "ok", nil), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, int32(1), retry.Load())
}

func TestWaiterContextCancellation(t *testing.T) {
	cache := New()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := countingFetch(&calls, release, "slow", nil)

	leaderDone := make(chan error, 1)
	go func() {
		_, err := cache.Get(context.Background(), "k", fetch, time.Minute)
		leaderDone <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx, "k", fetch, time.Minute)
		waiterDone <- err
	}()
	require.Eventually(t, func() bool { return cache.Stats().Misses == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-waiterDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter did not return")
	}

	close(release)
	select {
	case err := <-leaderDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("leader did not return")
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestFetchOutlivesCancelledLeader(t *testing.T) {
	cache := New()

	release := make(chan struct{})
	fetched := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		close(fetched)
		<-release
		// The leader's cancellation does not reach the shared fetch
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return "done", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx, "k", fetch, time.Minute)
		errc <- err
	}()

	<-fetched
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return cache.Len() == 1 }, time.Second, time.Millisecond)

	value, err := cache.Get(context.Background(), "k", func(context.Context) (any, error) {
		return nil, errors.New("should be served from cache")
	}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "done", value)
}

func TestDistinctKeysFetchInParallel(t *testing.T) {
	cache := New()

	release := make(chan struct{})
	var started atomic.Int32
	fetch := func(ctx context.Context) (any, error) {
		started.Add(1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, err := cache.Get(context.Background(), key, fetch, time.Minute)
			assert.NoError(t, err)
		}(key)
	}

	// All four fetches are running at once; none waits on another key
	require.Eventually(t, func() bool { return started.Load() == 4 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 4, cache.Len())
}

func TestInvalidateAndClear(t *testing.T) {
	cache := New(WithShards(4))

	var calls atomic.Int32
	fetch := countingFetch(&calls, nil, "v", nil)

	for _, key := range []string{"a", "b", "c"} {
		_, err := cache.Get(context.Background(), key, fetch, time.Minute)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, cache.Len())

	cache.Invalidate("a")
	cache.Invalidate("missing")
	assert.Equal(t, 2, cache.Len())

	_, err := cache.Get(context.Background(), "a", fetch, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())

	_, err = cache.Get(context.Background(), "b", fetch, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int32(5), calls.Load())
}

func TestInvalidateDoesNotCancelInflight(t *testing.T) {
	cache := New()

	release := make(chan struct{})
	var calls atomic.Int32
	fetch := countingFetch(&calls, release, "v", nil)

	errc := make(chan error, 1)
	go func() {
		_, err := cache.Get(context.Background(), "k", fetch, time.Minute)
		errc <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	cache.Invalidate("k")
	cache.Clear()
	close(release)

	require.NoError(t, <-errc)
	assert.Equal(t, 1, cache.Len())
}

// Two components ask for the realtime list within the TTL: one upstream request.
func TestRealtimeListScenario(t *testing.T) {
	clock := newFakeClock()
	cache := New(WithClock(clock.Now))
	gen := snapshot.NewGenerator(catalog.Default(), 1)

	var calls atomic.Int32
	fetch := func(ctx context.Context) (snapshot.Snapshot, error) {
		calls.Add(1)
		return gen.Next(), nil
	}

	const ttl = 5000 * time.Millisecond
	first, err := GetAs(context.Background(), cache, "realtime-equipment-list", fetch, ttl)
	require.NoError(t, err)

	clock.Advance(1200 * time.Millisecond)
	second, err := GetAs(context.Background(), cache, "realtime-equipment-list", fetch, ttl)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first, second)

	tank := first[1]
	require.Equal(t, "LNG低温储罐#1", tank.Name)
	level := tank.Parameters[0]
	assert.Equal(t, "level", level.Key)
	assert.Equal(t, "%", level.Unit)
	assert.GreaterOrEqual(t, level.Value, 80.0)
	assert.LessOrEqual(t, level.Value, 95.0)
	assert.Equal(t, snapshot.Round(level.Value, 1), level.Value)
}

func TestGetAsTypeMismatch(t *testing.T) {
	cache := New()

	_, err := cache.Get(context.Background(), "k", func(context.Context) (any, error) {
		return 42, nil
	}, time.Minute)
	require.NoError(t, err)

	_, err = GetAs(context.Background(), cache, "k", func(context.Context) (string, error) {
		return "unused", nil
	}, time.Minute)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

type countingObserver struct {
	hits, misses, joins, fetches, failures atomic.Int32
}

func (o *countingObserver) CacheHit()    { o.hits.Add(1) }
func (o *countingObserver) CacheMiss()   { o.misses.Add(1) }
func (o *countingObserver) FetchJoined() { o.joins.Add(1) }
func (o *countingObserver) FetchCompleted(_ time.Duration, err error) {
	o.fetches.Add(1)
	if err != nil {
		o.failures.Add(1)
	}
}

func TestObserverNotified(t *testing.T) {
	obs := &countingObserver{}
	cache := New(WithObserver(obs))

	ok := func(context.Context) (any, error) { return "v", nil }
	bad := func(context.Context) (any, error) { return nil, errors.New("boom") }

	_, _ = cache.Get(context.Background(), "k", ok, time.Minute)
	_, _ = cache.Get(context.Background(), "k", ok, time.Minute)
	_, _ = cache.Get(context.Background(), "x", bad, time.Minute)

	assert.Equal(t, int32(1), obs.hits.Load())
	assert.Equal(t, int32(2), obs.misses.Load())
	assert.Equal(t, int32(2), obs.fetches.Load())
	assert.Equal(t, int32(1), obs.failures.Load())
}
