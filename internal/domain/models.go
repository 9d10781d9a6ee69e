// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide represents the direction of a transaction
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// TradeSideFromString parses a trade side, accepting any casing
func TradeSideFromString(s string) (TradeSide, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return TradeSideBuy, nil
	case "SELL":
		return TradeSideSell, nil
	default:
		return "", fmt.Errorf("invalid trade side: %q (must be BUY or SELL)", s)
	}
}

// Trend classifies the intraday direction of a quote
type Trend string

const (
	TrendBullish Trend = "Bullish"
	TrendBearish Trend = "Bearish"
	TrendNeutral Trend = "Neutral"
)

// QuoteSnapshot is a point-in-time market snapshot for a single symbol.
// Raw fields come from the broker feed; derived fields are always recomputed
// by the gateway and never trusted from the feed.
type QuoteSnapshot struct {
	Symbol      string  `json:"symbol" msgpack:"symbol"`
	DisplayName string  `json:"display_name" msgpack:"display_name"`
	LastPrice   float64 `json:"last_price" msgpack:"last_price"`
	PrevClose   float64 `json:"prev_close" msgpack:"prev_close"`
	Open        float64 `json:"open" msgpack:"open"`
	High        float64 `json:"high" msgpack:"high"`
	Low         float64 `json:"low" msgpack:"low"`
	Spread      float64 `json:"spread" msgpack:"spread"`
	Volume      float64 `json:"volume" msgpack:"volume"`

	// Derived fields, computed by the gateway
	Change          float64  `json:"change" msgpack:"change"`
	PercentChange   float64  `json:"percent_change" msgpack:"percent_change"`
	DayRangePercent *float64 `json:"day_range_percent" msgpack:"day_range_percent"`
	LiquidityScore  *float64 `json:"liquidity_score" msgpack:"liquidity_score"`
	Trend           Trend    `json:"trend" msgpack:"trend"`

	FetchedAt time.Time `json:"fetched_at" msgpack:"fetched_at"`
}

// Candle is a single OHLCV bar. Timestamp is Unix seconds of bar open.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Position is a derived, ephemeral view of a user's open holding in one
// symbol. It is recomputed from the ledger on every read and never persisted.
// Market fields are nil when no live price is available; callers must
// distinguish "no data" from zero.
type Position struct {
	Symbol        string           `json:"symbol"`
	DisplayName   string           `json:"display_name"`
	Quantity      decimal.Decimal  `json:"quantity"`
	AverageCost   decimal.Decimal  `json:"average_cost"`
	MarketPrice   *decimal.Decimal `json:"market_price"`
	MarketValue   *decimal.Decimal `json:"market_value"`
	UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl"`
}

// PortfolioSummary aggregates a user's open positions. Totals cover only the
// symbols that had a market price; PartialData reports whether any symbol was
// missing one.
type PortfolioSummary struct {
	Positions          []Position      `json:"positions"`
	TotalMarketValue   decimal.Decimal `json:"total_market_value"`
	TotalUnrealizedPnL decimal.Decimal `json:"total_unrealized_pnl"`
	PartialData        bool            `json:"partial_data"`
}

// SymbolInfo is a directory entry for a tradeable symbol
type SymbolInfo struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// HistoryStats summarizes daily returns over a candle series
type HistoryStats struct {
	Days         int     `json:"days"`
	MeanReturn   float64 `json:"mean_return"`
	Volatility   float64 `json:"volatility"`
	PeriodReturn float64 `json:"period_return"`
}
