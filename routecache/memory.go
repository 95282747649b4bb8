package routecache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	body      []byte
	expiresAt time.Time
}

type memoryCache struct {
	mu sync.RWMutex
	// path -> principal -> entry, so invalidating a path drops it for
	// every principal at once.
	entries map[string]map[string]memoryEntry
	ttl     time.Duration
}

// NewMemoryCache creates an in-process route cache. Expired entries are
// dropped lazily on read.
func NewMemoryCache(ttl time.Duration) *memoryCache {
	return &memoryCache{
		entries: make(map[string]map[string]memoryEntry),
		ttl:     ttl,
	}
}

func (c *memoryCache) Get(ctx context.Context, path, principal string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[path][principal]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries[path], principal)
		c.mu.Unlock()
		return nil, false
	}
	return entry.body, true
}

func (c *memoryCache) Set(ctx context.Context, path, principal string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byPrincipal, ok := c.entries[path]
	if !ok {
		byPrincipal = make(map[string]memoryEntry)
		c.entries[path] = byPrincipal
	}
	byPrincipal[principal] = memoryEntry{
		body:      body,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *memoryCache) Invalidate(ctx context.Context, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}
