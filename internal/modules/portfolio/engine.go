// Package portfolio derives positions from the transaction ledger.
// Positions are never stored; every read replays the full history, so the
// ledger stays the single source of truth and the result is deterministic.
package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/suwi/papertrade/internal/domain"
	"github.com/suwi/papertrade/internal/modules/ledger"
)

// lot accumulates replay state for one symbol
type lot struct {
	displayName string
	quantity    decimal.Decimal
	totalCost   decimal.Decimal
}

// Replay folds an ordered transaction history into open positions using the
// average-cost method. A SELL removes cost at the pre-sale average, so the
// average cost of the remaining shares is unchanged by the sale. Symbols
// whose quantity drops to zero or below are omitted. Input must be in
// ascending execution order, as ListForUser returns it.
func Replay(transactions []ledger.Transaction) []domain.Position {
	lots := replayLots(transactions)

	positions := make([]domain.Position, 0, len(lots))
	for symbol, l := range lots {
		if !l.quantity.IsPositive() {
			continue
		}
		positions = append(positions, domain.Position{
			Symbol:      symbol,
			DisplayName: l.displayName,
			Quantity:    l.quantity,
			AverageCost: l.totalCost.Div(l.quantity),
		})
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})

	return positions
}

// HeldQuantity returns the replayed open quantity for one symbol,
// zero when the symbol is not held.
func HeldQuantity(transactions []ledger.Transaction, symbol string) decimal.Decimal {
	l, ok := replayLots(transactions)[symbol]
	if !ok || !l.quantity.IsPositive() {
		return decimal.Zero
	}
	return l.quantity
}

// AverageCost returns the replayed average cost for one symbol. The second
// return is false when the symbol is not currently held.
func AverageCost(transactions []ledger.Transaction, symbol string) (decimal.Decimal, bool) {
	l, ok := replayLots(transactions)[symbol]
	if !ok || !l.quantity.IsPositive() {
		return decimal.Zero, false
	}
	return l.totalCost.Div(l.quantity), true
}

func replayLots(transactions []ledger.Transaction) map[string]*lot {
	lots := make(map[string]*lot)

	for _, t := range transactions {
		l, ok := lots[t.Symbol]
		if !ok {
			l = &lot{quantity: decimal.Zero, totalCost: decimal.Zero}
			lots[t.Symbol] = l
		}
		if t.DisplayName != "" {
			l.displayName = t.DisplayName
		}

		switch t.Side {
		case domain.TradeSideBuy:
			l.quantity = l.quantity.Add(t.Quantity)
			l.totalCost = l.totalCost.Add(t.Quantity.Mul(t.ExecutionPrice))
		case domain.TradeSideSell:
			if !l.quantity.IsPositive() {
				// Sell against an empty lot cannot happen through the
				// validator; tolerate it in replay by closing the lot.
				l.quantity = decimal.Zero
				l.totalCost = decimal.Zero
				continue
			}
			average := l.totalCost.Div(l.quantity)
			l.totalCost = l.totalCost.Sub(average.Mul(t.Quantity))
			l.quantity = l.quantity.Sub(t.Quantity)
			if !l.quantity.IsPositive() {
				l.quantity = decimal.Zero
				l.totalCost = decimal.Zero
			}
		}
	}

	return lots
}
