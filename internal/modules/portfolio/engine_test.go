package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suwi/papertrade/internal/domain"
	"github.com/suwi/papertrade/internal/modules/ledger"
)

func tx(side domain.TradeSide, symbol string, qty, price float64, at time.Time) ledger.Transaction {
	q := decimal.NewFromFloat(qty)
	p := decimal.NewFromFloat(price)
	return ledger.Transaction{
		UserID:         "u1",
		Symbol:         symbol,
		Side:           side,
		Quantity:       q,
		ExecutionPrice: p,
		TotalValue:     q.Mul(p),
		ExecutedAt:     at,
	}
}

func TestReplay_AverageCost(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	transactions := []ledger.Transaction{
		tx(domain.TradeSideBuy, "INFY", 10, 100, base),
		tx(domain.TradeSideBuy, "INFY", 10, 200, base.Add(time.Hour)),
	}

	positions := Replay(transactions)
	require.Len(t, positions, 1)

	assert.Equal(t, "INFY", positions[0].Symbol)
	assert.True(t, positions[0].Quantity.Equal(decimal.NewFromInt(20)))
	assert.True(t, positions[0].AverageCost.Equal(decimal.NewFromInt(150)),
		"average cost should be 150, got %s", positions[0].AverageCost)
}

func TestReplay_SellKeepsAverageUnchanged(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	transactions := []ledger.Transaction{
		tx(domain.TradeSideBuy, "INFY", 10, 100, base),
		tx(domain.TradeSideBuy, "INFY", 10, 200, base.Add(time.Hour)),
		tx(domain.TradeSideSell, "INFY", 5, 180, base.Add(2*time.Hour)),
	}

	positions := Replay(transactions)
	require.Len(t, positions, 1)

	// Selling at 180 against an average of 150 must not move the average
	assert.True(t, positions[0].Quantity.Equal(decimal.NewFromInt(15)))
	assert.True(t, positions[0].AverageCost.Equal(decimal.NewFromInt(150)),
		"average cost should stay 150 after a sale, got %s", positions[0].AverageCost)
}

func TestReplay_ClosedPositionDropped(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	transactions := []ledger.Transaction{
		tx(domain.TradeSideBuy, "TCS", 10, 100, base),
		tx(domain.TradeSideSell, "TCS", 10, 120, base.Add(time.Hour)),
		tx(domain.TradeSideBuy, "INFY", 5, 50, base.Add(2*time.Hour)),
	}

	positions := Replay(transactions)
	require.Len(t, positions, 1)
	assert.Equal(t, "INFY", positions[0].Symbol)
}

func TestReplay_Deterministic(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	transactions := []ledger.Transaction{
		tx(domain.TradeSideBuy, "TCS", 3, 3000, base),
		tx(domain.TradeSideBuy, "INFY", 10, 100, base.Add(time.Minute)),
		tx(domain.TradeSideSell, "TCS", 1, 3100, base.Add(2*time.Minute)),
		tx(domain.TradeSideBuy, "WIPRO", 7, 400, base.Add(3*time.Minute)),
	}

	first := Replay(transactions)
	for i := 0; i < 10; i++ {
		again := Replay(transactions)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].Symbol, again[j].Symbol)
			assert.True(t, first[j].Quantity.Equal(again[j].Quantity))
			assert.True(t, first[j].AverageCost.Equal(again[j].AverageCost))
		}
	}

	// Output is sorted by symbol regardless of trade order
	assert.Equal(t, "INFY", first[0].Symbol)
	assert.Equal(t, "TCS", first[1].Symbol)
	assert.Equal(t, "WIPRO", first[2].Symbol)
}

func TestHeldQuantity(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	transactions := []ledger.Transaction{
		tx(domain.TradeSideBuy, "INFY", 10, 100, base),
		tx(domain.TradeSideSell, "INFY", 4, 110, base.Add(time.Hour)),
	}

	assert.True(t, HeldQuantity(transactions, "INFY").Equal(decimal.NewFromInt(6)))
	assert.True(t, HeldQuantity(transactions, "TCS").IsZero())
	assert.True(t, HeldQuantity(nil, "INFY").IsZero())
}

func TestAverageCost_FractionalQuantities(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	transactions := []ledger.Transaction{
		tx(domain.TradeSideBuy, "INFY", 2.5, 100, base),
		tx(domain.TradeSideBuy, "INFY", 2.5, 110, base.Add(time.Hour)),
	}

	avg, ok := AverageCost(transactions, "INFY")
	require.True(t, ok)
	assert.True(t, avg.Equal(decimal.NewFromInt(105)), "got %s", avg)

	_, ok = AverageCost(transactions, "TCS")
	assert.False(t, ok)
}
