// Package reqcache de-duplicates identical read requests. Concurrent
// callers for the same key share one in-flight call, and the settled
// outcome stays cached for a short TTL so rapid repeat reads (status
// polling, pull-after-status) don't hit the network twice.
//
// The cache coalesces reads only; it provides no mutual exclusion and
// must never be used for requests with side effects.
package reqcache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL bounds both memory and staleness. Entries expire this long
// after insertion, regardless of when they were last read.
const DefaultTTL = 5 * time.Second

type entry struct {
	value      []byte
	err        error
	insertedAt time.Time
}

// Cache coalesces concurrent identical reads and caches their outcomes.
// Keys are caller-defined; the remote client uses "METHOD url".
type Cache struct {
	ttl   time.Duration
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry

	// now is overridable for TTL tests.
	now func() time.Time
}

// New creates a Cache. A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Do returns the cached outcome for key if one is fresh, otherwise runs fn
// exactly once for all concurrent callers of the same key and caches its
// outcome. Failed outcomes are cached too: a read that just errored will
// keep erroring for the TTL window rather than hammering the server.
func (c *Cache) Do(key string, fn func() ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	c.pruneLocked()

	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return e.value, e.err
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, fnErr := fn()

		c.mu.Lock()
		c.entries[key] = entry{value: value, err: fnErr, insertedAt: c.now()}
		c.mu.Unlock()

		// The error rides inside the entry so singleflight shares it
		// with every waiter via the cached lookup below as well.
		return value, fnErr
	})

	if b, ok := v.([]byte); ok {
		return b, err
	}

	return nil, err
}

// Forget drops the cached outcome for key, if any. Writers call this after
// a successful mutation so the next read observes the new state instead of
// a stale cached response.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// pruneLocked removes expired entries. Caller holds c.mu.
func (c *Cache) pruneLocked() {
	cutoff := c.now().Add(-c.ttl)
	for k, e := range c.entries {
		if e.insertedAt.Before(cutoff) {
			delete(c.entries, k)
		}
	}
}
