// Package marketdata fetches, normalizes and enriches market data from the
// broker, fronted by the quote cache.
package marketdata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/suwi/papertrade/internal/domain"
	"github.com/suwi/papertrade/internal/quotecache"
)

const (
	// quoteChunkSize bounds symbols per broker quotes call
	quoteChunkSize = 50

	// maxConcurrentChunks bounds parallel broker calls during a bulk fetch
	maxConcurrentChunks = 4

	// historyWindowDays is the upstream cap on a single history request
	historyWindowDays = 365

	callTimeout = 10 * time.Second
)

// rangeDays maps chart range keys to calendar days
var rangeDays = map[string]int{
	"5D": 5,
	"1M": 30,
	"3M": 90,
	"6M": 180,
	"1Y": 365,
	"3Y": 1095,
	"5Y": 1825,
}

// Gateway is the single entry point for market data. Reads go through the
// in-memory cache, then the persistent store, then the broker. All broker
// failures degrade to absence; the gateway never retries.
type Gateway struct {
	broker    domain.BrokerClient
	cache     *quotecache.Cache
	store     *quotecache.Store // optional second tier, may be nil
	directory domain.SymbolDirectory
	log       zerolog.Logger
}

// New creates a market data gateway
func New(broker domain.BrokerClient, cache *quotecache.Cache, store *quotecache.Store, directory domain.SymbolDirectory, log zerolog.Logger) *Gateway {
	return &Gateway{
		broker:    broker,
		cache:     cache,
		store:     store,
		directory: directory,
		log:       log.With().Str("service", "marketdata").Logger(),
	}
}

// GetQuote returns an enriched snapshot for one symbol.
// Returns ErrQuoteUnavailable (possibly wrapping the cause) on any miss.
func (g *Gateway) GetQuote(ctx context.Context, userID, symbol string) (domain.QuoteSnapshot, error) {
	if snapshot, ok := g.cache.Get(symbol); ok {
		return snapshot, nil
	}

	if g.store != nil {
		snapshot, err := g.store.GetIfFresh(symbol)
		if err != nil {
			g.log.Warn().Err(err).Str("symbol", symbol).Msg("Snapshot store read failed")
		} else if snapshot != nil {
			g.cache.Put(symbol, *snapshot, quotecache.TTLQuote)
			return *snapshot, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	snapshots, err := g.broker.Quotes(callCtx, userID, []string{symbol})
	if err != nil {
		return domain.QuoteSnapshot{}, fmt.Errorf("%w: %s: %w", domain.ErrQuoteUnavailable, symbol, err)
	}
	if len(snapshots) == 0 {
		return domain.QuoteSnapshot{}, fmt.Errorf("%w: %s", domain.ErrQuoteUnavailable, symbol)
	}

	snapshot := enrich(snapshots[0], g.directory)
	g.cacheSnapshot(snapshot, quotecache.TTLQuote)

	return snapshot, nil
}

// GetQuotesBulk returns enriched snapshots for the requested symbols.
// Fresh cache entries are mixed with freshly fetched ones; symbols that
// cannot be priced are silently omitted. A failed chunk never aborts the
// other chunks.
func (g *Gateway) GetQuotesBulk(ctx context.Context, userID string, symbols []string) (map[string]domain.QuoteSnapshot, error) {
	results, misses := g.cache.GetFresh(symbols)

	if g.store != nil && len(misses) > 0 {
		still := misses[:0]
		for _, symbol := range misses {
			snapshot, err := g.store.GetIfFresh(symbol)
			if err == nil && snapshot != nil {
				g.cache.Put(symbol, *snapshot, quotecache.TTLQuote)
				results[symbol] = *snapshot
				continue
			}
			still = append(still, symbol)
		}
		misses = still
	}

	if len(misses) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentChunks)

	for _, chunk := range chunkSymbols(misses, quoteChunkSize) {
		chunk := chunk
		group.Go(func() error {
			callCtx, cancel := context.WithTimeout(groupCtx, callTimeout)
			defer cancel()

			snapshots, err := g.broker.Quotes(callCtx, userID, chunk)
			if err != nil {
				// Partial batch failure: unaffected chunks proceed
				g.log.Warn().Err(err).Int("chunk_size", len(chunk)).Msg("Quote chunk failed")
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, raw := range snapshots {
				snapshot := enrich(raw, g.directory)
				g.cacheSnapshot(snapshot, quotecache.TTLQuote)
				results[snapshot.Symbol] = snapshot
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return results, err
	}

	return results, nil
}

// RefreshMarketSnapshot fetches and caches the whole-market list with the
// longer snapshot TTL. Used by the market overview path, where staleness of
// a few minutes is acceptable.
func (g *Gateway) RefreshMarketSnapshot(ctx context.Context, userID string, symbols []string) (map[string]domain.QuoteSnapshot, error) {
	results := make(map[string]domain.QuoteSnapshot, len(symbols))

	for _, chunk := range chunkSymbols(symbols, quoteChunkSize) {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		snapshots, err := g.broker.Quotes(callCtx, userID, chunk)
		cancel()
		if err != nil {
			g.log.Warn().Err(err).Int("chunk_size", len(chunk)).Msg("Market snapshot chunk failed")
			continue
		}

		for _, raw := range snapshots {
			snapshot := enrich(raw, g.directory)
			g.cacheSnapshot(snapshot, quotecache.TTLMarketSnapshot)
			results[snapshot.Symbol] = snapshot
		}
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: market snapshot", domain.ErrQuoteUnavailable)
	}

	return results, nil
}

// GetHistory returns daily candles for a chart range key (5D .. 5Y).
// The upstream feed caps single requests at one year, so longer ranges are
// fetched in sequential windows and merged, deduplicated by timestamp,
// ascending.
func (g *Gateway) GetHistory(ctx context.Context, userID, symbol, rangeKey string) ([]domain.Candle, error) {
	totalDays, ok := rangeDays[rangeKey]
	if !ok {
		totalDays = rangeDays["1M"]
	}

	var all []domain.Candle
	end := time.Now().UTC()

	for totalDays > 0 {
		windowDays := totalDays
		if windowDays > historyWindowDays {
			windowDays = historyWindowDays
		}
		start := end.AddDate(0, 0, -windowDays)

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		candles, err := g.broker.History(callCtx, userID, symbol, start, end)
		cancel()
		if err != nil {
			if len(all) == 0 {
				return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
			}
			// Keep what earlier windows produced
			g.log.Warn().Err(err).Str("symbol", symbol).Msg("History window failed, returning partial range")
			break
		}

		all = append(all, candles...)

		end = start.AddDate(0, 0, -1)
		totalDays -= windowDays
	}

	return mergeCandles(all), nil
}

// cacheSnapshot writes through to both cache tiers
func (g *Gateway) cacheSnapshot(snapshot domain.QuoteSnapshot, ttl time.Duration) {
	g.cache.Put(snapshot.Symbol, snapshot, ttl)
	if g.store != nil {
		if err := g.store.Put(snapshot, ttl); err != nil {
			g.log.Warn().Err(err).Str("symbol", snapshot.Symbol).Msg("Snapshot store write failed")
		}
	}
}

// mergeCandles deduplicates by timestamp (last occurrence wins) and sorts
// ascending. Overlapping fetch windows make duplicates routine.
func mergeCandles(candles []domain.Candle) []domain.Candle {
	unique := make(map[int64]domain.Candle, len(candles))
	for _, c := range candles {
		unique[c.Timestamp] = c
	}

	merged := make([]domain.Candle, 0, len(unique))
	for _, c := range unique {
		merged = append(merged, c)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})

	return merged
}

// chunkSymbols splits symbols into chunks of at most size
func chunkSymbols(symbols []string, size int) [][]string {
	var chunks [][]string
	for len(symbols) > 0 {
		n := size
		if n > len(symbols) {
			n = len(symbols)
		}
		chunks = append(chunks, symbols[:n])
		symbols = symbols[n:]
	}
	return chunks
}
