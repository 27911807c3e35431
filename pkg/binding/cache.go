package binding

import "sync"

// Cache deduplicates descriptor construction per kind.
// The zero value is not usable; call NewCache.
type Cache struct {
	mu   sync.RWMutex
	desc map[Kind]*Descriptor
}

// NewCache returns an empty descriptor cache.
func NewCache() *Cache {
	return &Cache{desc: make(map[Kind]*Descriptor)}
}

// GetOrCreate returns the cached descriptor for kind, building and caching
// it on first use. Concurrent first calls for one kind all receive the same
// descriptor; construction happens at most once. Panics for a Kind outside
// the known set.
func (c *Cache) GetOrCreate(kind Kind) *Descriptor {
	c.mu.RLock()
	d := c.desc[kind]
	c.mu.RUnlock()
	if d != nil {
		return d
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if d := c.desc[kind]; d != nil {
		return d
	}
	d = newDescriptor(kind)
	c.desc[kind] = d
	return d
}

// Contains reports whether kind has a cached descriptor.
func (c *Cache) Contains(kind Kind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.desc[kind]
	return ok
}

// Size returns the number of cached descriptors.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.desc)
}

// Clear drops every cached descriptor. Handles bound earlier keep their
// descriptor; only future GetOrCreate calls rebuild.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.desc = make(map[Kind]*Descriptor)
}

var shared = NewCache()

// SharedCache returns the process-wide descriptor cache.
func SharedCache() *Cache {
	return shared
}
