package domain

import (
	"context"
	"time"
)

// TokenProvider supplies an active broker access token for a user.
// Implementations handle refresh-token exchange and expiry transparently.
// An empty token with a nil error means the user must re-authenticate;
// it is not an error condition.
type TokenProvider interface {
	ActiveAccessToken(ctx context.Context, userID string) (string, error)
}

// BrokerClient defines the narrow surface the core needs from the broker
// API. Implementations return snapshots with raw fields only; the gateway
// computes all derived fields.
type BrokerClient interface {
	// Quotes fetches snapshots for up to one chunk of symbols.
	// Symbols the feed does not know are omitted from the result.
	Quotes(ctx context.Context, userID string, symbols []string) ([]QuoteSnapshot, error)

	// History fetches daily candles for the window [from, to].
	History(ctx context.Context, userID, symbol string, from, to time.Time) ([]Candle, error)
}

// SymbolDirectory resolves display names and searches the symbol master
// list. Backed by a static reference dataset owned outside the core.
type SymbolDirectory interface {
	// ResolveName returns the display name for a symbol, or the empty
	// string when unknown.
	ResolveName(symbol string) string

	// Search returns symbols whose code or name matches the query.
	Search(query string) []SymbolInfo
}
