package deadcache

import (
	"sync"
	"time"
)

// Cache records endpoints that recently failed a probe, keyed by host:port.
// One entry per key; marking an already-dead endpoint refreshes its
// timestamp. Safe for concurrent use by parallel probe goroutines.
type Cache struct {
	mutex   sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// New creates a Cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// NewWithClock creates a Cache using the given clock. Tests use this to
// simulate expiry without sleeping.
func NewWithClock(ttl time.Duration, now func() time.Time) *Cache {
	c := New(ttl)
	c.now = now
	return c
}

// IsDead reports whether key has a live dead-mark. An entry that has
// reached the TTL never counts as a hit; it is removed on the spot so the
// caller probes again.
func (c *Cache) IsDead(key string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	markedAt, ok := c.entries[key]
	if !ok {
		return false
	}

	if c.now().Sub(markedAt) >= c.ttl {
		delete(c.entries, key)
		return false
	}

	return true
}

// MarkDead inserts or refreshes the dead-mark for key.
func (c *Cache) MarkDead(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = c.now()
}

// Clear removes the dead-mark for key. Called when a probe succeeds so a
// recovered endpoint is eligible immediately.
func (c *Cache) Clear(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
}

// Sweep removes every expired entry in one pass and returns how many were
// removed. The scheduler runs this once per cycle before probing, which
// bounds cache growth independently of lazy expiry.
func (c *Cache) Sweep() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for key, markedAt := range c.entries {
		if now.Sub(markedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the current number of entries.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}
