package resource

import "sync"

// Cache memoizes directory-to-resource-name resolutions. Entries are
// append-only for the life of the process; Reset is the explicit rescan hook
// and the only way entries disappear. Resource and manifest locations do not
// move during a run, so staleness is not a concern between rescans.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Get returns the cached name for an absolute directory path.
func (c *Cache) Get(dir string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.entries[dir]
	return name, ok
}

// Put records a resolution.
func (c *Cache) Put(dir, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[dir] = name
}

// Len returns the number of cached resolutions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every entry. Used by the periodic rescan job.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
}
