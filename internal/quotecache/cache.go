// Package quotecache provides a process-wide TTL cache for quote snapshots.
// It shields the core from repeated broker calls and from broker outages.
package quotecache

import (
	"sync"
	"time"

	"github.com/suwi/papertrade/internal/domain"
)

type entry struct {
	snapshot  domain.QuoteSnapshot
	expiresAt time.Time
}

// Cache is a mutex-guarded symbol -> (snapshot, expiry) map.
// Expired entries are never served; callers refetch on a miss.
// Safe for concurrent use; a redundant refill by racing callers is
// acceptable, corrupted state is not.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty cache
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewWithClock creates a cache with an injected clock, for tests
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Get returns the snapshot for symbol if present and not expired
func (c *Cache) Get(symbol string) (domain.QuoteSnapshot, bool) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()

	if !ok || c.now().After(e.expiresAt) {
		return domain.QuoteSnapshot{}, false
	}
	return e.snapshot, true
}

// GetFresh returns the cached snapshots for the requested symbols along with
// the symbols that missed. A bulk request may be satisfied by mixing these
// hits with freshly fetched quotes.
func (c *Cache) GetFresh(symbols []string) (map[string]domain.QuoteSnapshot, []string) {
	hits := make(map[string]domain.QuoteSnapshot, len(symbols))
	var misses []string

	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, symbol := range symbols {
		e, ok := c.entries[symbol]
		if !ok || now.After(e.expiresAt) {
			misses = append(misses, symbol)
			continue
		}
		hits[symbol] = e.snapshot
	}

	return hits, misses
}

// Put stores a snapshot with the given TTL, replacing any previous entry
// wholesale. Snapshots are never partially mutated.
func (c *Cache) Put(symbol string, snapshot domain.QuoteSnapshot, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[symbol] = entry{
		snapshot:  snapshot,
		expiresAt: c.now().Add(ttl),
	}
}

// DeleteExpired removes expired entries and returns how many were dropped.
// Called by the maintenance sweep; correctness does not depend on it since
// Get already refuses expired entries.
func (c *Cache) DeleteExpired() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for symbol, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, symbol)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, including not-yet-swept expired ones
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
