// Package accounts persists user cash balances. The account entity itself
// is owned by the UI layer; the core only touches the cash balance, and only
// inside the same transaction as the ledger write.
package accounts

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/suwi/papertrade/internal/domain"
)

// Repository handles account balance operations on ledger.db
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a new account repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "accounts").Logger(),
	}
}

// Ensure creates the account row with a starting balance if it is missing
func (r *Repository) Ensure(userID string, startingBalance decimal.Decimal) error {
	_, err := r.ledgerDB.Exec(
		"INSERT OR IGNORE INTO accounts (user_id, cash_balance, updated_at) VALUES (?, ?, ?)",
		userID, startingBalance.String(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to ensure account for %s: %w", userID, err)
	}
	return nil
}

// GetBalance returns the user's cash balance
func (r *Repository) GetBalance(userID string) (decimal.Decimal, error) {
	return r.getBalance(r.ledgerDB, userID)
}

// GetBalanceTx reads the balance inside a caller-supplied transaction
func (r *Repository) GetBalanceTx(tx *sql.Tx, userID string) (decimal.Decimal, error) {
	return r.getBalance(tx, userID)
}

type rowQuerier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func (r *Repository) getBalance(db rowQuerier, userID string) (decimal.Decimal, error) {
	var balance string
	err := db.QueryRow(
		"SELECT cash_balance FROM accounts WHERE user_id = ?", userID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, userID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance for %s: %w", userID, err)
	}

	d, err := decimal.NewFromString(balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid cash_balance %q for %s: %w", balance, userID, err)
	}
	return d, nil
}

// SetBalanceTx writes the balance inside a caller-supplied transaction.
// This is the only balance mutation path on a trade, keeping the debit or
// credit atomic with the ledger append.
func (r *Repository) SetBalanceTx(tx *sql.Tx, userID string, balance decimal.Decimal) error {
	res, err := tx.Exec(
		"UPDATE accounts SET cash_balance = ?, updated_at = ? WHERE user_id = ?",
		balance.String(), time.Now().Unix(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance for %s: %w", userID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check balance update for %s: %w", userID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, userID)
	}

	return nil
}
