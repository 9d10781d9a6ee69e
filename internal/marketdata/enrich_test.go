package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suwi/papertrade/internal/domain"
)

type stubDirectory struct {
	names map[string]string
}

func (d *stubDirectory) ResolveName(symbol string) string { return d.names[symbol] }
func (d *stubDirectory) Search(string) []domain.SymbolInfo {
	return nil
}

func TestEnrich_DerivedFields(t *testing.T) {
	raw := domain.QuoteSnapshot{
		Symbol:    "INFY",
		LastPrice: 110,
		PrevClose: 100,
		Open:      105,
		High:      112,
		Low:       104,
		Spread:    0.5,
		Volume:    1000,
	}

	s := enrich(raw, &stubDirectory{names: map[string]string{"INFY": "Infosys Ltd"}})

	assert.Equal(t, "Infosys Ltd", s.DisplayName)
	assert.InDelta(t, 10.0, s.Change, 1e-9)
	assert.InDelta(t, 10.0, s.PercentChange, 1e-9)

	require.NotNil(t, s.DayRangePercent)
	assert.InDelta(t, (112.0-104.0)/104.0*100, *s.DayRangePercent, 1e-9)

	require.NotNil(t, s.LiquidityScore)
	assert.InDelta(t, 2000.0, *s.LiquidityScore, 1e-9)

	assert.Equal(t, domain.TrendBullish, s.Trend)
}

func TestEnrich_ZeroDenominators(t *testing.T) {
	raw := domain.QuoteSnapshot{
		Symbol:    "NEWIPO",
		LastPrice: 50,
		PrevClose: 0,
		Open:      55,
		High:      56,
		Low:       0,
		Spread:    0,
		Volume:    100,
	}

	s := enrich(raw, nil)

	assert.Equal(t, "NEWIPO", s.DisplayName, "unknown symbol falls back to itself")
	assert.Zero(t, s.Change)
	assert.Zero(t, s.PercentChange)
	assert.Nil(t, s.DayRangePercent)
	assert.Nil(t, s.LiquidityScore)
	assert.Equal(t, domain.TrendBearish, s.Trend)
}

func TestEnrich_Trend(t *testing.T) {
	testCases := []struct {
		name string
		last float64
		open float64
		want domain.Trend
	}{
		{"Above open", 101, 100, domain.TrendBullish},
		{"Below open", 99, 100, domain.TrendBearish},
		{"Equal to open", 100, 100, domain.TrendNeutral},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := enrich(domain.QuoteSnapshot{Symbol: "X", LastPrice: tc.last, Open: tc.open}, nil)
			assert.Equal(t, tc.want, s.Trend)
		})
	}
}

func TestEnrich_OverwritesFeedDerivedFields(t *testing.T) {
	bogus := 999.0
	raw := domain.QuoteSnapshot{
		Symbol:          "INFY",
		LastPrice:       100,
		PrevClose:       100,
		Open:            100,
		Change:          bogus,
		PercentChange:   bogus,
		DayRangePercent: &bogus,
		LiquidityScore:  &bogus,
		Trend:           "Garbage",
	}

	s := enrich(raw, nil)

	assert.Zero(t, s.Change)
	assert.Zero(t, s.PercentChange)
	assert.Nil(t, s.DayRangePercent)
	assert.Nil(t, s.LiquidityScore)
	assert.Equal(t, domain.TrendNeutral, s.Trend)
}
