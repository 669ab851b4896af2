// Package cache implements the bounded, TTL-expiring query-result cache
// described in spec §4.3: a FIFO queue of cache entries under a single
// mutex, with opportunistic expiry on every lookup and insert. The
// eviction-filter-in-place technique is adapted from the teacher's
// ledger.GroupLedger.CleanExpired, narrowed from a cross-referenced map to
// a single ordered queue keyed by query id.
package cache

import (
	"sync"
	"time"

	"github.com/basecamp-overlay/overlay/internal/model"
)

// Cache is a bounded, oldest-insertion-first query-result cache.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  []model.CacheEntry // oldest at index 0
}

// New creates a Cache with the given bounded capacity and TTL.
func New(capacity int, ttl time.Duration) *Cache {
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make([]model.CacheEntry, 0, capacity),
	}
}

// evictExpiredLocked drops every entry whose age exceeds the TTL. Must be
// called with mu held.
func (c *Cache) evictExpiredLocked(now time.Time) {
	kept := c.entries[:0]
	for _, e := range c.entries {
		if now.Sub(e.InsertedAt) <= c.ttl {
			kept = append(kept, e)
		}
	}
	c.entries = kept
}

// Lookup opportunistically expires stale entries, then scans for queryID.
// A hit returns a copy of the cached response with FromCache set; a miss
// returns ok=false.
func (c *Cache) Lookup(queryID string) (*model.QueryResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpiredLocked(time.Now())

	for _, e := range c.entries {
		if e.QueryID == queryID {
			resp := e.Response.Clone()
			resp.FromCache = true
			return resp, true
		}
	}
	return nil, false
}

// Insert opportunistically expires stale entries, drops the oldest entry
// if the cache is at capacity, then appends a new entry for queryID.
func (c *Cache) Insert(queryID string, response *model.QueryResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.evictExpiredLocked(now)

	if len(c.entries) >= c.capacity {
		c.entries = c.entries[1:]
	}

	c.entries = append(c.entries, model.CacheEntry{
		QueryID:    queryID,
		Response:   response.Clone(),
		InsertedAt: now,
	})
}

// Len reports the current number of live (not-yet-evicted-by-this-call)
// entries. Intended for tests and diagnostics only.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked(time.Now())
	return len(c.entries)
}
