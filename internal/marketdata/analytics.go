package marketdata

import (
	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/suwi/papertrade/internal/domain"
)

// SMAOverlay computes a simple moving average series over candle closes for
// chart overlays. Entries before the first full period are zero, matching
// the indicator library's warmup convention. Returns nil when there are not
// enough candles for a single period.
func SMAOverlay(candles []domain.Candle, period int) []float64 {
	if period <= 0 || len(candles) < period {
		return nil
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	return talib.Sma(closes, period)
}

// ReturnStats summarizes daily close-to-close returns over a candle series.
// Volatility is the sample standard deviation of daily returns.
func ReturnStats(candles []domain.Candle) domain.HistoryStats {
	if len(candles) < 2 {
		return domain.HistoryStats{Days: len(candles)}
	}

	returns := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, candles[i].Close/prev-1)
	}

	stats := domain.HistoryStats{Days: len(candles)}
	if len(returns) == 0 {
		return stats
	}

	stats.MeanReturn = stat.Mean(returns, nil)
	if len(returns) > 1 {
		stats.Volatility = stat.StdDev(returns, nil)
	}
	if first := candles[0].Close; first != 0 {
		stats.PeriodReturn = candles[len(candles)-1].Close/first - 1
	}

	return stats
}
