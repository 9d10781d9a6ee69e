package fyers

import (
	"time"

	"github.com/suwi/papertrade/internal/domain"
)

// quotesEnvelope is the wire format of the quotes endpoint.
// Each row wraps the actual values under "v".
type quotesEnvelope struct {
	Status string     `json:"s"`
	Data   []quoteRow `json:"d"`
}

type quoteRow struct {
	Name   string      `json:"n"`
	Values quoteValues `json:"v"`
}

type quoteValues struct {
	Symbol    string  `json:"symbol"`
	Code      int     `json:"code"`
	LastPrice float64 `json:"lp"`
	PrevClose float64 `json:"prev_close_price"`
	Open      float64 `json:"open_price"`
	High      float64 `json:"high_price"`
	Low       float64 `json:"low_price"`
	Spread    float64 `json:"spread"`
	Volume    float64 `json:"volume"`
}

// historyEnvelope is the wire format of the history endpoint.
// Candles arrive as positional arrays: [ts, open, high, low, close, volume].
type historyEnvelope struct {
	Status  string      `json:"s"`
	Candles [][]float64 `json:"candles"`
}

// transformQuotes converts feed rows to raw snapshots, dropping rows the
// feed flags as errors (negative code) and rows without a symbol.
// Derived fields are left zero; the gateway computes them uniformly.
func transformQuotes(envelope quotesEnvelope, fetchedAt time.Time) []domain.QuoteSnapshot {
	snapshots := make([]domain.QuoteSnapshot, 0, len(envelope.Data))

	for _, row := range envelope.Data {
		v := row.Values
		if v.Symbol == "" || v.Code < 0 {
			continue
		}

		snapshots = append(snapshots, domain.QuoteSnapshot{
			Symbol:    v.Symbol,
			LastPrice: v.LastPrice,
			PrevClose: v.PrevClose,
			Open:      v.Open,
			High:      v.High,
			Low:       v.Low,
			Spread:    v.Spread,
			Volume:    v.Volume,
			FetchedAt: fetchedAt,
		})
	}

	return snapshots
}

// transformCandles converts positional candle arrays to domain candles,
// skipping malformed rows.
func transformCandles(rows [][]float64) []domain.Candle {
	candles := make([]domain.Candle, 0, len(rows))

	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		candles = append(candles, domain.Candle{
			Timestamp: int64(row[0]),
			Open:      row[1],
			High:      row[2],
			Low:       row[3],
			Close:     row[4],
			Volume:    row[5],
		})
	}

	return candles
}
