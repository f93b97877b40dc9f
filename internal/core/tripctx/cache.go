package tripctx

import (
	"sync"
	"time"
)

// ttlCache is a small fixed-TTL cache keyed by trip id. Entries are dropped
// lazily on read and explicitly on Invalidate; trip counts are small enough
// that no eviction policy is needed.
type ttlCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time // swapped in tests
}

type cacheEntry struct {
	ctx     *TripContext
	expires time.Time
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *ttlCache) get(key string) (*TripContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.ctx, true
}

func (c *ttlCache) put(key string, ctx *TripContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{ctx: ctx, expires: c.now().Add(c.ttl)}
}

func (c *ttlCache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
