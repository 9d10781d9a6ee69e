// Package ledger owns the append-only transaction store, the source of
// truth for position reconstruction.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/suwi/papertrade/internal/domain"
)

// Transaction is one BUY or SELL event. Immutable once created: the ledger
// has no update or delete path, corrections are new offsetting rows.
type Transaction struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	Symbol         string           `json:"symbol"`
	DisplayName    string           `json:"display_name"`
	Side           domain.TradeSide `json:"side"`
	Quantity       decimal.Decimal  `json:"quantity"`
	ExecutionPrice decimal.Decimal  `json:"execution_price"`
	TotalValue     decimal.Decimal  `json:"total_value"`
	RealizedPnL    *decimal.Decimal `json:"realized_pnl,omitempty"` // SELL only, fixed at creation time
	Remarks        string           `json:"remarks,omitempty"`
	ExecutedAt     time.Time        `json:"executed_at"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Validate checks transaction inputs before insertion
func (t Transaction) Validate() error {
	if t.UserID == "" {
		return domain.NewValidationError("user_id", "must not be empty")
	}
	if t.Symbol == "" {
		return domain.NewValidationError("symbol", "must not be empty")
	}
	if t.Side != domain.TradeSideBuy && t.Side != domain.TradeSideSell {
		return domain.NewValidationError("side", "must be BUY or SELL")
	}
	if !t.Quantity.IsPositive() {
		return domain.NewValidationError("quantity", "must be positive")
	}
	if !t.ExecutionPrice.IsPositive() {
		return domain.NewValidationError("execution_price", "must be positive")
	}
	if t.Side == domain.TradeSideBuy && t.RealizedPnL != nil {
		return domain.NewValidationError("realized_pnl", "must be empty for BUY")
	}
	return nil
}
