package quotecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suwi/papertrade/internal/domain"
)

func snapshot(symbol string, price float64) domain.QuoteSnapshot {
	return domain.QuoteSnapshot{Symbol: symbol, LastPrice: price}
}

func TestCache_ExpiredEntryNeverServed(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cache := NewWithClock(clock)

	cache.Put("INFY", snapshot("INFY", 100), TTLQuote)

	// Still fresh at 30s exactly
	now = now.Add(TTLQuote)
	_, ok := cache.Get("INFY")
	assert.True(t, ok)

	// One second past the TTL the entry is gone
	now = now.Add(time.Second)
	_, ok = cache.Get("INFY")
	assert.False(t, ok, "expired entry must not be served")
}

func TestCache_GetFreshPartialHits(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	cache := NewWithClock(func() time.Time { return now })

	cache.Put("INFY", snapshot("INFY", 100), TTLQuote)
	cache.Put("TCS", snapshot("TCS", 3000), time.Second)

	now = now.Add(10 * time.Second)

	hits, misses := cache.GetFresh([]string{"INFY", "TCS", "WIPRO"})
	require.Len(t, hits, 1)
	assert.Equal(t, 100.0, hits["INFY"].LastPrice)
	assert.ElementsMatch(t, []string{"TCS", "WIPRO"}, misses)
}

func TestCache_PutReplacesWholesale(t *testing.T) {
	cache := New()

	cache.Put("INFY", snapshot("INFY", 100), TTLQuote)
	cache.Put("INFY", snapshot("INFY", 101), TTLQuote)

	got, ok := cache.Get("INFY")
	require.True(t, ok)
	assert.Equal(t, 101.0, got.LastPrice)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_DeleteExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	cache := NewWithClock(func() time.Time { return now })

	cache.Put("INFY", snapshot("INFY", 100), TTLQuote)
	cache.Put("TCS", snapshot("TCS", 3000), TTLMarketSnapshot)

	now = now.Add(TTLQuote + time.Second)

	removed := cache.DeleteExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, cache.Len())

	_, ok := cache.Get("TCS")
	assert.True(t, ok, "market snapshot TTL outlives quote TTL")
}
