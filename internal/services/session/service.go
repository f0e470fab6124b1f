package session

import (
	"sync"

	"secretline/internal/crypto"
	"secretline/internal/domain"
)

// Cache maps channel ids to unwrapped symmetric keys. It hands out copies so
// callers may wipe what they receive.
type Cache struct {
	mu   sync.RWMutex
	keys map[domain.ChannelID]domain.SymmetricKey
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{keys: make(map[domain.ChannelID]domain.SymmetricKey)}
}

// Store records key for id, overwriting any previous entry.
func (c *Cache) Store(id domain.ChannelID, key domain.SymmetricKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.keys[id]; ok {
		crypto.Wipe(old)
	}
	c.keys[id] = key.Clone()
}

// Get returns a copy of the key cached for id.
func (c *Cache) Get(id domain.ChannelID) (domain.SymmetricKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[id]
	if !ok {
		return nil, false
	}
	return key.Clone(), true
}

// Delete drops the key for id.
func (c *Cache) Delete(id domain.ChannelID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.keys[id]; ok {
		crypto.Wipe(old)
		delete(c.keys, id)
	}
}

// Clear drops every key.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, key := range c.keys {
		crypto.Wipe(key)
		delete(c.keys, id)
	}
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

var _ domain.KeyCache = (*Cache)(nil)
