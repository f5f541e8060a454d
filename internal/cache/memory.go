package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps entries of the current process with expiry
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a memory cache. A ttl of zero on Set uses
// defaultTTL; expired entries are swept every cleanupInterval.
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.items.Get(key)
	if !found {
		return nil, false
	}
	data, ok := val.([]byte)
	return data, ok
}

func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, value, ttl)
	return nil
}

// Purge drops the entries of one namespace, or everything
func (c *MemoryCache) Purge(namespace string) error {
	if namespace == "" {
		c.items.Flush()
		return nil
	}
	prefix := keyPrefix + namespace + ":"
	for key := range c.items.Items() {
		if strings.HasPrefix(key, prefix) {
			c.items.Delete(key)
		}
	}
	return nil
}
