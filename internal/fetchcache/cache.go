//
//
package fetchcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultShards is the number of entry shards when WithShards is not given.
const DefaultShards = 32

// ErrTypeMismatch is returned by GetAs when a cached value has another type.
var ErrTypeMismatch = errors.New("cached value type mismatch")

// FetchFunc produces the value for one key.
type FetchFunc func(ctx context.Context) (any, error)

// Observer receives cache events, e.g. for metrics.
type Observer interface {
	CacheHit()
	CacheMiss()
	FetchJoined()
	FetchCompleted(elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) CacheHit()                           {}
func (nopObserver) CacheMiss()                          {}
func (nopObserver) FetchJoined()                        {}
func (nopObserver) FetchCompleted(time.Duration, error) {}

// Stats is a point-in-time copy of the cache counters.
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Fetches     uint64 `json:"fetches"`
	Joins       uint64 `json:"joins"`
	FetchErrors uint64 `json:"fetchErrors"`
	Entries     int    `json:"entries"`
}

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) valid(now time.Time) bool {
	return now.Sub(e.storedAt) <= e.ttl
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// Cache is a keyed, TTL-bounded result cache with in-flight deduplication.
// The zero value is not usable; call New.
type Cache struct {
	shards   []*shard
	inflight singleflight.Group
	clock    func() time.Time
	observer Observer

	hits        atomic.Uint64
	misses      atomic.Uint64
	fetches     atomic.Uint64
	joins       atomic.Uint64
	fetchErrors atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithShards sets the number of entry shards.
func WithShards(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.shards = makeShards(n)
		}
	}
}

// WithObserver installs an observer.
func WithObserver(o Observer) Option {
	return func(c *Cache) {
		if o != nil {
			c.observer = o
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		shards:   makeShards(DefaultShards),
		clock:    time.Now,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func makeShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{entries: make(map[string]entry)}
	}
	return shards
}

func (c *Cache) shardFor(key string) *shard {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

// Get returns the value for key. An unexpired cached value is returned
// directly; otherwise the caller joins the fetch already in flight for key or
// starts one, and a successful result is stored for ttl.
//
// Every caller joined on one fetch receives the same value or the same error.
// If ctx ends first, Get returns ctx.Err() and the fetch continues for the
// other callers. With ttl <= 0 the fetch always runs and nothing is stored or
// shared.
func (c *Cache) Get(ctx context.Context, key string, fetch FetchFunc, ttl time.Duration) (any, error) {
	if ttl <= 0 {
		c.misses.Add(1)
		c.observer.CacheMiss()
		return c.run(ctx, fetch)
	}

	if value, ok := c.lookup(key); ok {
		c.hits.Add(1)
		c.observer.CacheHit()
		return value, nil
	}
	c.misses.Add(1)
	c.observer.CacheMiss()

	leader := false
	results := c.inflight.DoChan(key, func() (any, error) {
		leader = true

		// A fetch that finished between our lookup and this call already stored it
		if value, ok := c.lookup(key); ok {
			return value, nil
		}

		// The shared fetch outlives any single waiter
		value, err := c.run(context.WithoutCancel(ctx), fetch)
		if err != nil {
			return nil, err
		}
		c.store(key, value, ttl)
		return value, nil
	})

	select {
	case res := <-results:
		if !leader {
			c.joins.Add(1)
			c.observer.FetchJoined()
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetAs is Get for typed fetchers.
func GetAs[V any](ctx context.Context, c *Cache, key string, fetch func(ctx context.Context) (V, error), ttl time.Duration) (V, error) {
	var zero V
	value, err := c.Get(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}, ttl)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(V)
	if !ok {
		return zero, fmt.Errorf("key %q: %w: got %T", key, ErrTypeMismatch, value)
	}
	return typed, nil
}

func (c *Cache) run(ctx context.Context, fetch FetchFunc) (any, error) {
	start := c.clock()
	c.fetches.Add(1)
	value, err := fetch(ctx)
	c.observer.FetchCompleted(c.clock().Sub(start), err)
	if err != nil {
		c.fetchErrors.Add(1)
		return nil, err
	}
	return value, nil
}

// lookup returns the unexpired value for key, deleting an expired entry.
func (c *Cache) lookup(key string) (any, bool) {
	s := c.shardFor(key)
	now := c.clock()

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.valid(now) {
		return e.value, true
	}

	s.mu.Lock()
	// Only drop the entry we saw; a fresh store may have replaced it
	if cur, ok := s.entries[key]; ok && cur.storedAt.Equal(e.storedAt) {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil, false
}

func (c *Cache) store(key string, value any, ttl time.Duration) {
	s := c.shardFor(key)
	s.mu.Lock()
	s.entries[key] = entry{value: value, storedAt: c.clock(), ttl: ttl}
	s.mu.Unlock()
}

// Invalidate drops the entry for key. A fetch in flight is not cancelled.
func (c *Cache) Invalidate(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Clear drops every entry. Fetches in flight are not cancelled.
func (c *Cache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[string]entry)
		s.mu.Unlock()
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Fetches:     c.fetches.Load(),
		Joins:       c.joins.Load(),
		FetchErrors: c.fetchErrors.Load(),
		Entries:     c.Len(),
	}
}
