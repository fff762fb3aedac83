// Package artwork provides the tiered cover image cache: memory, disk, and
// the remote catalog CDN. Each tier populates the one in front of it; a
// failed remote fetch degrades to "no image", never to an error the caller
// has to handle.
package artwork

import (
	"strings"
	"sync"
)

// memoryCache is a bounded in-memory byte cache keyed by key and size class.
// Eviction is FIFO; cover fetch patterns are bursty (a screen full of tiles)
// and recency tracking buys little over plain insertion order.
type memoryCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	order    []string
	capacity int
}

func newMemoryCache(capacity int) *memoryCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &memoryCache{
		entries:  make(map[string][]byte),
		capacity: capacity,
	}
}

func memoryKey(key string, size SizeClass) string {
	return key + "#" + string(size)
}

func (c *memoryCache) get(key string, size SizeClass) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[memoryKey(key, size)]
	return data, ok
}

func (c *memoryCache) put(key string, size SizeClass, data []byte) {
	k := memoryKey(key, size)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[k]; !exists {
		for len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, k)
	}
	c.entries[k] = data
}

// invalidate drops every size class cached for the key.
func (c *memoryCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := key + "#"
	kept := c.order[:0]
	for _, k := range c.order {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			continue
		}
		kept = append(kept, k)
	}
	c.order = kept
}

func (c *memoryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
