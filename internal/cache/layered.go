package cache

import "time"

// LayeredCache fronts the disk layer with memory. The disk layer is
// optional; without a configured directory the cache is memory-only.
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache creates a layered cache. An empty diskDir disables the
// disk layer.
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	c := &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
	}
	if diskDir != "" {
		c.disk = NewDiskCache(diskDir, diskTTL)
	}
	return c
}

// Get checks memory first, then disk, promoting disk hits into memory.
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	if c.disk != nil {
		if val, found := c.disk.Get(key); found {
			c.memory.Set(key, val, 0)
			return val, true
		}
	}

	return nil, false
}

// Set stores the value in every layer.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	if c.disk != nil {
		return c.disk.Set(key, value, ttl)
	}
	return nil
}

// Delete removes the value from every layer.
func (c *LayeredCache) Delete(key string) error {
	c.memory.Delete(key)
	if c.disk != nil {
		c.disk.Delete(key)
	}
	return nil
}

// Clear drops every layer.
func (c *LayeredCache) Clear() error {
	c.memory.Clear()
	if c.disk != nil {
		c.disk.Clear()
	}
	return nil
}
