// Package trading executes paper trades: validation, ledger append and
// balance mutation in one SQLite transaction, serialized per user.
package trading

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/suwi/papertrade/internal/domain"
)

// Validator holds the pre-trade business rules. Validation always runs
// before any write; a rejected trade leaves no trace anywhere.
type Validator struct{}

// NewValidator creates a trade validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateBuy checks a BUY against the available cash balance
func (v *Validator) ValidateBuy(balance, quantity, price decimal.Decimal) error {
	if !quantity.IsPositive() {
		return domain.NewValidationError("quantity", "must be positive")
	}
	if !price.IsPositive() {
		return domain.NewValidationError("price", "must be positive")
	}

	cost := quantity.Mul(price)
	if cost.GreaterThan(balance) {
		return fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientFunds, cost.String(), balance.String())
	}

	return nil
}

// ValidateSell checks a SELL against the held quantity. Short positions are
// not allowed; overselling is rejected outright rather than clamped.
func (v *Validator) ValidateSell(held, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return domain.NewValidationError("quantity", "must be positive")
	}
	if quantity.GreaterThan(held) {
		return fmt.Errorf("%w: want %s, hold %s", domain.ErrInsufficientQuantity, quantity.String(), held.String())
	}

	return nil
}
