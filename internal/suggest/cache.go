package suggest

import (
	"sync"
	"time"
)

// Cache is a bounded suggestion cache keyed by normalized URL. Entries
// expire after a fixed TTL and, once the cache is full, the first-inserted
// key is evicted to make room. This is deliberately not a true LRU:
// lookups do not refresh a key's position. Invalidation is wholesale.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    []string
	items    map[string]cacheItem
}

type cacheItem struct {
	suggestions []Suggestion
	storedAt    time.Time
}

// DefaultCacheSize and DefaultCacheTTL bound the daemon's query cache.
const (
	DefaultCacheSize = 50
	DefaultCacheTTL  = 5 * time.Minute
)

// NewCache creates a cache holding at most capacity entries for up to ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]cacheItem),
	}
}

// Get returns the cached suggestions for key if present and fresh.
func (c *Cache) Get(key string, now time.Time) ([]Suggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok || now.Sub(item.storedAt) >= c.ttl {
		return nil, false
	}
	return item.suggestions, true
}

// Put stores suggestions for key, evicting the first-inserted key when at
// capacity. Re-putting an existing key keeps its insertion position.
func (c *Cache) Put(key string, suggestions []Suggestion, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists {
		if len(c.items) >= c.capacity && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.items, oldest)
		}
		c.order = append(c.order, key)
	}
	c.items[key] = cacheItem{suggestions: suggestions, storedAt: now}
}

// Invalidate drops every cached entry. Called on any preference change,
// config reload, or index rebuild.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = c.order[:0]
	c.items = make(map[string]cacheItem)
}

// Len reports the number of cached entries, including stale ones not yet
// evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
