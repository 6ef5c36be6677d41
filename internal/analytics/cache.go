package analytics

import (
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes view results. Concurrent misses for the same key compute once.
// Reset drops every entry; results computed before a Reset are never stored after it.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]any
	generation uint64
	hits       int64
	misses     int64

	group singleflight.Group
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Entries    int     `json:"entries"`
	Generation uint64  `json:"generation"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRatio   float64 `json:"hit_ratio"`
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]any)}
}

// Key builds a cache key from a view name and its parameters
func Key(view string, params ...string) string {
	return view + "|" + strings.Join(params, "|")
}

// Get returns the cached value for key, computing it on a miss
func (c *Cache) Get(key string, compute func() any) any {
	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return v
	}
	c.misses++
	gen := c.generation
	c.mu.Unlock()

	v, _, _ := c.group.Do(strconv.FormatUint(gen, 10)+"/"+key, func() (any, error) {
		v := compute()
		c.mu.Lock()
		if c.generation == gen {
			c.entries[key] = v
		}
		c.mu.Unlock()
		return v, nil
	})
	return v
}

// Cached is the typed form of Cache.Get
func Cached[T any](c *Cache, key string, compute func() T) T {
	if c == nil {
		return compute()
	}
	return c.Get(key, func() any { return compute() }).(T)
}

// Reset drops every entry
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
	c.generation++
}

// Stats returns a snapshot of the cache counters
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Entries:    len(c.entries),
		Generation: c.generation,
		Hits:       c.hits,
		Misses:     c.misses,
		HitRatio:   ratio(int(c.hits), int(c.hits+c.misses)),
	}
}
