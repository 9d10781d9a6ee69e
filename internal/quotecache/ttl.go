package quotecache

import "time"

// TTL constants for cached market data.
// These are added to the fetch time when storing to calculate expiry.
const (
	// TTLQuote bounds single-symbol quotes used on near-real-time views
	TTLQuote = 30 * time.Second

	// TTLMarketSnapshot bounds whole-market snapshot rows, which are
	// refreshed far less often than individual quotes
	TTLMarketSnapshot = 5 * time.Minute
)
