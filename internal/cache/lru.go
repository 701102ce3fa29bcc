package cache

import (
	"container/list"
	"context"
	"sync"
)

// DefaultMaxSize bounds a cache built without WithMaxSize.
const DefaultMaxSize = 10

// Stats is a snapshot of a cache's size and hit counters.
type Stats struct {
	Size              int     `json:"size"`
	MaxSize           int     `json:"max_size"`
	Hits              int64   `json:"hits"`
	Misses            int64   `json:"misses"`
	Evictions         int64   `json:"evictions"`
	TotalAccesses     int64   `json:"total_accesses"`
	HitRate           float64 `json:"hit_rate"`
	HitRatePercentage float64 `json:"hit_rate_percentage"`
}

type entry[V any] struct {
	key   string
	value V
	token uint64
}

// ResultCache is a bounded least-recently-used cache. The most recently used
// entry sits at the front of the list and the eviction victim at the back.
// Every Get hit and every Set stamps the entry with a fresh access token.
type ResultCache[V any] struct {
	mu      sync.Mutex
	name    string
	maxSize int
	ll      *list.List
	items   map[string]*list.Element
	token   uint64

	hits      int64
	misses    int64
	evictions int64

	metrics *Metrics
}

type options struct {
	name    string
	maxSize int
	metrics *Metrics
}

// Option configures a ResultCache.
type Option func(*options)

// WithMaxSize sets the number of entries kept. Non-positive values keep the default.
func WithMaxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// WithName labels the cache in metrics and logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithMetrics reports hits, misses and evictions to m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New creates an empty cache. The capacity is fixed for the cache's lifetime.
func New[V any](opts ...Option) *ResultCache[V] {
	o := options{name: "results", maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &ResultCache[V]{
		name:    o.name,
		maxSize: o.maxSize,
		ll:      list.New(),
		items:   make(map[string]*list.Element, o.maxSize),
		metrics: o.metrics,
	}
}

// Get returns the value stored under key and marks it most recently used.
func (c *ResultCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		c.metrics.miss(context.Background(), c.name)
		var zero V
		return zero, false
	}

	c.hits++
	c.touch(el)
	c.metrics.hit(context.Background(), c.name)
	return el.Value.(*entry[V]).value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *ResultCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry[V]).value = value
		c.touch(el)
		return
	}

	if c.ll.Len() >= c.maxSize {
		c.evictOldest()
	}

	c.token++
	c.items[key] = c.ll.PushFront(&entry[V]{key: key, value: value, token: c.token})
}

// Has reports whether key is cached without touching recency or counters.
func (c *ResultCache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Delete removes key and reports whether it was present.
func (c *ResultCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.ll.Remove(el)
	delete(c.items, key)
	return true
}

// Clear drops every entry and resets the counters.
func (c *ResultCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.items = make(map[string]*list.Element, c.maxSize)
	c.token = 0
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Len returns the number of cached entries.
func (c *ResultCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Keys returns the cached keys from most to least recently used.
func (c *ResultCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[V]).key)
	}
	return keys
}

// Stats returns the current counters. The hit rate is 0 before any access.
func (c *ResultCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var rate float64
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}

	return Stats{
		Size:              c.ll.Len(),
		MaxSize:           c.maxSize,
		Hits:              c.hits,
		Misses:            c.misses,
		Evictions:         c.evictions,
		TotalAccesses:     total,
		HitRate:           rate,
		HitRatePercentage: rate * 100,
	}
}

// touch must be called with mu held.
func (c *ResultCache[V]) touch(el *list.Element) {
	c.token++
	el.Value.(*entry[V]).token = c.token
	c.ll.MoveToFront(el)
}

// evictOldest must be called with mu held.
func (c *ResultCache[V]) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
	c.evictions++
	c.metrics.evict(context.Background(), c.name)
}
