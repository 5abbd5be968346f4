package nlu

import (
	"sync"
	"time"
)

type cacheEntry struct {
	val string
	at  time.Time
}

// ttlCache memoizes cleanup results by raw input.
type ttlCache struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	data map[string]cacheEntry
}

func newTTLCache(ttl time.Duration, now func() time.Time) *ttlCache {
	if now == nil {
		now = time.Now
	}
	return &ttlCache{ttl: ttl, now: now, data: make(map[string]cacheEntry)}
}

func (c *ttlCache) get(k string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[k]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.at) > c.ttl {
		delete(c.data, k)
		return "", false
	}
	return e.val, true
}

func (c *ttlCache) set(k, v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[k] = cacheEntry{val: v, at: c.now()}
}
