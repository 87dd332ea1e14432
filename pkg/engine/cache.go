package engine

import "sync"

// ConfigCache holds configuration text fetched during one device session,
// keyed by section filter. It belongs to a single Engine and is emptied
// whenever the device configuration may have changed.
type ConfigCache struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewConfigCache returns an empty cache.
func NewConfigCache() *ConfigCache {
	return &ConfigCache{entries: make(map[string]string)}
}

// Get returns the cached text for filter.
func (c *ConfigCache) Get(filter string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.entries[filter]
	return text, ok
}

// Put stores text for filter.
func (c *ConfigCache) Put(filter, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[filter] = text
}

// Invalidate drops every entry.
func (c *ConfigCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
}

// Len returns the number of cached entries.
func (c *ConfigCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
