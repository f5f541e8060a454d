package cache

import "time"

// LayeredCache answers from process memory before touching the disk
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache puts a memory cache with memoryTTL in front of a disk
// cache under diskDir
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return NewLayers(NewMemoryCache(memoryTTL, 10*time.Minute), NewDiskCache(diskDir, diskTTL))
}

// NewLayers stacks two arbitrary caches
func NewLayers(fast, slow Cache) *LayeredCache {
	return &LayeredCache{memory: fast, disk: slow}
}

// Get promotes disk hits to memory
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}
	val, found := c.disk.Get(key)
	if found {
		_ = c.memory.Set(key, val, 0)
	}
	return val, found
}

// Set writes both layers. ttl applies to the disk layer only; memory
// entries keep the memory default.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, 0); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

func (c *LayeredCache) Purge(namespace string) error {
	if err := c.memory.Purge(namespace); err != nil {
		return err
	}
	return c.disk.Purge(namespace)
}
