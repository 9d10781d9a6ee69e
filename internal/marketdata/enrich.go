package marketdata

import (
	"github.com/suwi/papertrade/internal/domain"
)

// enrich recomputes all derived quote fields from the raw feed values.
// The feed's own derived fields are never trusted; every snapshot that
// leaves the gateway went through this function.
func enrich(s domain.QuoteSnapshot, directory domain.SymbolDirectory) domain.QuoteSnapshot {
	if directory != nil {
		s.DisplayName = directory.ResolveName(s.Symbol)
	}
	if s.DisplayName == "" {
		s.DisplayName = s.Symbol
	}

	if s.PrevClose != 0 {
		s.Change = s.LastPrice - s.PrevClose
		s.PercentChange = s.Change / s.PrevClose * 100
	} else {
		s.Change = 0
		s.PercentChange = 0
	}

	s.DayRangePercent = nil
	if s.Low != 0 {
		v := (s.High - s.Low) / s.Low * 100
		s.DayRangePercent = &v
	}

	s.LiquidityScore = nil
	if s.Spread != 0 {
		v := s.Volume / s.Spread
		s.LiquidityScore = &v
	}

	switch {
	case s.LastPrice > s.Open:
		s.Trend = domain.TrendBullish
	case s.LastPrice < s.Open:
		s.Trend = domain.TrendBearish
	default:
		s.Trend = domain.TrendNeutral
	}

	return s
}
