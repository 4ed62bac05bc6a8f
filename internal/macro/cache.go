package macro

import (
	"sync"
	"time"
)

// DefaultTTL is how long a macro reading is reused
const DefaultTTL = 5 * time.Minute

type cacheEntry struct {
	value   float64
	label   string
	updated time.Time
}

// Cache keeps the last good reading of every macro source
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates a cache; ttl <= 0 uses DefaultTTL
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns a fresh reading for key
func (c *Cache) Get(key string) (float64, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.updated) >= c.ttl {
		return 0, "", false
	}
	return e.value, e.label, true
}

// Set stores a reading for key
func (c *Cache) Set(key string, value float64, label string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{value: value, label: label, updated: c.now()}
}

// Очистка устаревших данных из кэша
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.Sub(e.updated) >= c.ttl {
			delete(c.entries, key)
		}
	}
}
