// Package cache provides a typed in-memory cache with TTL and LRU eviction.
// Se usa para respuestas de servicios externos lentos o con cuota
// (NVD, WHOIS) que se repiten entre sesiones.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Loader obtiene el valor de una clave ausente en la cache.
type Loader[V any] func(ctx context.Context) (V, error)

// entry represents a cached item with metadata
type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	element   *list.Element
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Stats son contadores acumulados desde la creación.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// MemoryCache es una cache LRU con TTL, segura para uso concurrente.
type MemoryCache[V any] struct {
	mu         sync.Mutex
	capacity   int
	defaultTTL time.Duration
	items      map[string]*entry[V]
	lru        *list.List
	stats      Stats
	now        func() time.Time
}

// New creates a cache with the given capacity. defaultTTL se aplica en
// GetOrLoad; 0 significa sin expiración.
func New[V any](capacity int, defaultTTL time.Duration) *MemoryCache[V] {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryCache[V]{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		items:      make(map[string]*entry[V]),
		lru:        list.New(),
		now:        time.Now,
	}
}

// Get retrieves a value. An expired item is removed and reported as missing.
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	if e.expired(c.now()) {
		c.deleteEntry(e)
		c.stats.Misses++
		return zero, false
	}

	c.lru.MoveToFront(e.element)
	c.stats.Hits++
	return e.value, true
}

// Set stores a value. If ttl is 0, the item never expires.
func (c *MemoryCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if existing, ok := c.items[key]; ok {
		existing.value = value
		existing.expiresAt = expiresAt
		c.lru.MoveToFront(existing.element)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictLRU()
	}

	e := &entry[V]{key: key, value: value, expiresAt: expiresAt}
	e.element = c.lru.PushFront(e)
	c.items[key] = e
}

// GetOrLoad devuelve el valor cacheado o lo obtiene con load y lo guarda
// con el TTL por defecto. Los errores de load no se cachean.
// Dos llamadas concurrentes con la misma clave pueden cargar ambas.
func (c *MemoryCache[V]) GetOrLoad(ctx context.Context, key string, load Loader[V]) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	c.Set(key, v, c.defaultTTL)
	return v, nil
}

// Delete removes a value from the cache.
func (c *MemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.deleteEntry(e)
	}
}

// Clear removes all values from the cache.
func (c *MemoryCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry[V])
	c.lru.Init()
}

// Len returns the current number of items, expired ones included until
// they are touched or cleaned.
func (c *MemoryCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanExpired removes all expired items and returns how many were removed.
func (c *MemoryCache[V]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, e := range c.items {
		if e.expired(now) {
			c.deleteEntry(e)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the counters.
func (c *MemoryCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.items)
	return s
}

// evictLRU removes the least recently used item. Must be called with c.mu held.
func (c *MemoryCache[V]) evictLRU() {
	back := c.lru.Back()
	if back == nil {
		return
	}
	c.deleteEntry(back.Value.(*entry[V]))
	c.stats.Evictions++
}

// deleteEntry must be called with c.mu held.
func (c *MemoryCache[V]) deleteEntry(e *entry[V]) {
	delete(c.items, e.key)
	c.lru.Remove(e.element)
}
