package portfolio

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suwi/papertrade/internal/domain"
	"github.com/suwi/papertrade/internal/modules/ledger"
)

type stubBulkQuotes struct {
	snapshots map[string]domain.QuoteSnapshot
	err       error
}

func (s *stubBulkQuotes) GetQuotesBulk(_ context.Context, _ string, _ []string) (map[string]domain.QuoteSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshots, nil
}

func setupPortfolioService(t *testing.T, quotes *stubBulkQuotes) (*Service, *ledger.Repository) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE transactions (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL,
			symbol          TEXT NOT NULL,
			display_name    TEXT NOT NULL,
			side            TEXT NOT NULL,
			quantity        TEXT NOT NULL,
			execution_price TEXT NOT NULL,
			total_value     TEXT NOT NULL,
			realized_pnl    TEXT,
			remarks         TEXT,
			executed_at     INTEGER NOT NULL,
			created_at      INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	repo := ledger.NewRepository(db, log)
	return NewService(repo, quotes, log), repo
}

func appendTrade(t *testing.T, repo *ledger.Repository, side domain.TradeSide, symbol string, qty, price int64, at time.Time, pnl *decimal.Decimal) {
	t.Helper()
	q := decimal.NewFromInt(qty)
	p := decimal.NewFromInt(price)
	_, err := repo.Append(ledger.Transaction{
		UserID:         "u1",
		Symbol:         symbol,
		DisplayName:    symbol,
		Side:           side,
		Quantity:       q,
		ExecutionPrice: p,
		TotalValue:     q.Mul(p),
		RealizedPnL:    pnl,
		ExecutedAt:     at,
	})
	require.NoError(t, err)
}

func TestGetPositions_EnrichedWithMarketData(t *testing.T) {
	quotes := &stubBulkQuotes{snapshots: map[string]domain.QuoteSnapshot{
		"INFY": {Symbol: "INFY", LastPrice: 180},
	}}
	service, repo := setupPortfolioService(t, quotes)

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	appendTrade(t, repo, domain.TradeSideBuy, "INFY", 10, 100, base, nil)
	appendTrade(t, repo, domain.TradeSideBuy, "INFY", 10, 200, base.Add(time.Hour), nil)

	summary, err := service.GetPositions(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, summary.Positions, 1)

	p := summary.Positions[0]
	require.NotNil(t, p.MarketPrice)
	assert.True(t, p.MarketPrice.Equal(decimal.NewFromInt(180)))
	assert.True(t, p.MarketValue.Equal(decimal.NewFromInt(3600)))
	// (180-150)*20
	assert.True(t, p.UnrealizedPnL.Equal(decimal.NewFromInt(600)))

	assert.False(t, summary.PartialData)
	assert.True(t, summary.TotalMarketValue.Equal(decimal.NewFromInt(3600)))
	assert.True(t, summary.TotalUnrealizedPnL.Equal(decimal.NewFromInt(600)))
}

func TestGetPositions_MissingPriceReportsPartialData(t *testing.T) {
	quotes := &stubBulkQuotes{snapshots: map[string]domain.QuoteSnapshot{
		"INFY": {Symbol: "INFY", LastPrice: 180},
	}}
	service, repo := setupPortfolioService(t, quotes)

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	appendTrade(t, repo, domain.TradeSideBuy, "INFY", 10, 150, base, nil)
	appendTrade(t, repo, domain.TradeSideBuy, "DELISTED", 5, 40, base.Add(time.Minute), nil)

	summary, err := service.GetPositions(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, summary.Positions, 2)

	assert.True(t, summary.PartialData)
	assert.True(t, summary.TotalMarketValue.Equal(decimal.NewFromInt(1800)), "totals cover only priced symbols")

	for _, p := range summary.Positions {
		if p.Symbol == "DELISTED" {
			assert.Nil(t, p.MarketPrice)
			assert.Nil(t, p.MarketValue)
			assert.Nil(t, p.UnrealizedPnL)
		}
	}
}

func TestGetPositions_QuoteOutageDegradesToUnpriced(t *testing.T) {
	quotes := &stubBulkQuotes{err: domain.ErrUpstreamTimeout}
	service, repo := setupPortfolioService(t, quotes)

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	appendTrade(t, repo, domain.TradeSideBuy, "INFY", 10, 150, base, nil)

	summary, err := service.GetPositions(context.Background(), "u1")
	require.NoError(t, err, "portfolio reads never fail on a market data outage")
	require.Len(t, summary.Positions, 1)
	assert.True(t, summary.PartialData)
	assert.Nil(t, summary.Positions[0].MarketPrice)
	assert.True(t, summary.Positions[0].AverageCost.Equal(decimal.NewFromInt(150)),
		"cost basis survives without market data")
}

func TestGetPositions_EmptyLedger(t *testing.T) {
	service, _ := setupPortfolioService(t, &stubBulkQuotes{})

	summary, err := service.GetPositions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, summary.Positions)
	assert.False(t, summary.PartialData)
}

func TestGetTransactionHistory(t *testing.T) {
	quotes := &stubBulkQuotes{snapshots: map[string]domain.QuoteSnapshot{
		"INFY": {Symbol: "INFY", LastPrice: 190},
	}}
	service, repo := setupPortfolioService(t, quotes)

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	appendTrade(t, repo, domain.TradeSideBuy, "INFY", 10, 100, base, nil)
	pnl := decimal.NewFromInt(250)
	appendTrade(t, repo, domain.TradeSideSell, "INFY", 5, 150, base.Add(time.Hour), &pnl)

	page, err := service.GetTransactionHistory(context.Background(), "u1", 1)
	require.NoError(t, err)

	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Entries, 2)

	// Newest first
	assert.Equal(t, domain.TradeSideSell, page.Entries[0].Side)
	require.NotNil(t, page.Entries[0].CurrentPrice)
	assert.True(t, page.Entries[0].CurrentPrice.Equal(decimal.NewFromInt(190)))

	assert.True(t, page.RealizedPnLTotal.Equal(pnl))
}

func TestHeldQuantityService(t *testing.T) {
	service, repo := setupPortfolioService(t, &stubBulkQuotes{})

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	appendTrade(t, repo, domain.TradeSideBuy, "INFY", 10, 100, base, nil)
	appendTrade(t, repo, domain.TradeSideSell, "INFY", 4, 120, base.Add(time.Hour), nil)

	held, err := service.HeldQuantity("u1", "INFY")
	require.NoError(t, err)
	assert.True(t, held.Equal(decimal.NewFromInt(6)))
}
