// Package cache provides the per-feature in-memory TTL caches.
//
// Entries expire strictly: a value older than the cache's TTL is evicted on read and
// reported as a miss. Entries are replaced wholesale on Set and never mutated in place.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimitra_cache_lookups_total",
			Help: "Total number of cache lookups, by cache and result (hit/miss)",
		},
		[]string{"cache", "result"},
	)
	cacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimitra_cache_evictions_total",
			Help: "Total number of evicted cache entries, by cache and reason (expired/capacity)",
		},
		[]string{"cache", "reason"},
	)
)

// Cache is the read/write contract feature handlers depend on.
// Implementations must be safe for concurrent use.
type Cache[V any] interface {
	// Get returns the stored value, or ok=false when absent or expired.
	Get(key string) (V, bool)

	// Set stores value under key, replacing any previous entry and resetting its age.
	Set(key string, value V)
}

// Config configures a TTLCache.
type Config struct {
	// Name labels the cache in metrics and logs (e.g. "weather").
	Name string

	// TTL is the maximum age of a returned entry.
	TTL time.Duration

	// MaxEntries bounds the cache with least-recently-used eviction. Zero means unbounded.
	MaxEntries int

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

type entry[V any] struct {
	key      string
	value    V
	storedAt time.Time
}

// TTLCache is a keyed in-memory store with a fixed TTL.
type TTLCache[V any] struct {
	name       string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used

	group singleflight.Group
}

// New creates a TTLCache from cfg.
func New[V any](cfg Config) *TTLCache[V] {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	maxEntries := cfg.MaxEntries
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &TTLCache[V]{
		name:       cfg.Name,
		ttl:        cfg.TTL,
		maxEntries: maxEntries,
		now:        now,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Name returns the cache's metric label.
func (c *TTLCache[V]) Name() string {
	return c.name
}

// TTL returns the configured time-to-live.
func (c *TTLCache[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value stored under key. An entry whose age exceeds the TTL is removed
// and reported as absent.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	v, ok := c.lookup(key)
	if ok {
		cacheLookups.WithLabelValues(c.name, "hit").Inc()
	} else {
		cacheLookups.WithLabelValues(c.name, "miss").Inc()
	}
	return v, ok
}

// lookup is Get without the hit/miss accounting.
func (c *TTLCache[V]) lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	e := el.Value.(*entry[V])
	if c.now().Sub(e.storedAt) > c.ttl {
		c.removeElement(el)
		cacheEvictions.WithLabelValues(c.name, "expired").Inc()
		return zero, false
	}

	c.order.MoveToFront(el)
	return e.value, true
}

// Set stores value under key with the current timestamp.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[V]{key: key, value: value, storedAt: c.now()}

	if el, ok := c.entries[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(e)

	if c.maxEntries > 0 {
		for c.order.Len() > c.maxEntries {
			c.removeElement(c.order.Back())
			cacheEvictions.WithLabelValues(c.name, "capacity").Inc()
		}
	}
}

// Len returns the number of stored entries, expired ones included until they are read.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// GetOrLoad returns the cached value for key, or calls load on a miss and stores its
// result. Concurrent misses for the same key share a single load. cached reports
// whether the value came from the store rather than from a load.
// A load error is returned as is and nothing is stored.
func (c *TTLCache[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (value V, cached bool, err error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have filled the entry while we waited on the group.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})

	v, _ := res.(V)
	return v, false, err
}

// removeElement must be called with the lock held.
func (c *TTLCache[V]) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	e := el.Value.(*entry[V])
	delete(c.entries, e.key)
	c.order.Remove(el)
}
