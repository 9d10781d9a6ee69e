package ledger

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/suwi/papertrade/internal/domain"
)

// transactionColumns lists the columns of the transactions table.
// Column order must match the scan helpers below.
const transactionColumns = `id, user_id, symbol, display_name, side, quantity, execution_price, total_value, realized_pnl, remarks, executed_at, created_at`

// Repository handles transaction persistence. Append-only by contract:
// there are no update or delete methods, ever.
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a new ledger repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "ledger").Logger(),
	}
}

// Append validates and inserts a transaction, returning its ID
func (r *Repository) Append(t Transaction) (string, error) {
	return r.append(r.ledgerDB, t)
}

// AppendTx inserts within a caller-supplied transaction. Used by the trade
// path so the ledger write commits atomically with the balance mutation.
func (r *Repository) AppendTx(tx *sql.Tx, t Transaction) (string, error) {
	return r.append(tx, t)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (r *Repository) append(db execer, t Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("failed to append transaction: %w", err)
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.ExecutedAt.IsZero() {
		t.ExecutedAt = time.Now().UTC()
	}

	var realizedPnL sql.NullString
	if t.RealizedPnL != nil {
		realizedPnL = sql.NullString{String: t.RealizedPnL.String(), Valid: true}
	}

	query := `
		INSERT INTO transactions
		(id, user_id, symbol, display_name, side, quantity, execution_price,
		 total_value, realized_pnl, remarks, executed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		t.ID,
		t.UserID,
		strings.ToUpper(strings.TrimSpace(t.Symbol)),
		t.DisplayName,
		string(t.Side),
		t.Quantity.String(),
		t.ExecutionPrice.String(),
		t.TotalValue.String(),
		realizedPnL,
		nullString(t.Remarks),
		t.ExecutedAt.Unix(),
		time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to append transaction: %w", err)
	}

	r.log.Info().
		Str("user_id", t.UserID).
		Str("symbol", t.Symbol).
		Str("side", string(t.Side)).
		Str("quantity", t.Quantity.String()).
		Msg("Transaction appended")

	return t.ID, nil
}

// ListForUser returns the user's full history in ascending timestamp order,
// the replay order the portfolio engine depends on. Rowid breaks timestamp
// ties so replay order matches insertion order.
func (r *Repository) ListForUser(userID string) ([]Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = ?
		ORDER BY executed_at ASC, rowid ASC
	`
	return r.queryTransactions(r.ledgerDB, query, userID)
}

// ListForUserTx is ListForUser inside a caller-supplied transaction,
// for the pre-write holdings check on the trade path.
func (r *Repository) ListForUserTx(tx *sql.Tx, userID string) ([]Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = ?
		ORDER BY executed_at ASC, rowid ASC
	`
	return r.queryTransactions(tx, query, userID)
}

// ListForUserPage returns one page of history, most recent first,
// for the transaction-history view.
func (r *Repository) ListForUserPage(userID string, page, perPage int) ([]Transaction, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = ?
		ORDER BY executed_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`
	return r.queryTransactions(r.ledgerDB, query, userID, perPage, (page-1)*perPage)
}

// CountForUser returns the user's total transaction count
func (r *Repository) CountForUser(userID string) (int, error) {
	var count int
	err := r.ledgerDB.QueryRow(
		"SELECT COUNT(*) FROM transactions WHERE user_id = ?", userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

type querier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

func (r *Repository) queryTransactions(db querier, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

func scanTransaction(rows *sql.Rows) (Transaction, error) {
	var t Transaction
	var side, quantity, price, total string
	var realizedPnL, remarks sql.NullString
	var executedAt, createdAt int64

	err := rows.Scan(
		&t.ID,
		&t.UserID,
		&t.Symbol,
		&t.DisplayName,
		&side,
		&quantity,
		&price,
		&total,
		&realizedPnL,
		&remarks,
		&executedAt,
		&createdAt,
	)
	if err != nil {
		return t, err
	}

	t.Side = domain.TradeSide(side)
	if t.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return t, fmt.Errorf("invalid quantity %q: %w", quantity, err)
	}
	if t.ExecutionPrice, err = decimal.NewFromString(price); err != nil {
		return t, fmt.Errorf("invalid execution_price %q: %w", price, err)
	}
	if t.TotalValue, err = decimal.NewFromString(total); err != nil {
		return t, fmt.Errorf("invalid total_value %q: %w", total, err)
	}
	if realizedPnL.Valid {
		pnl, err := decimal.NewFromString(realizedPnL.String)
		if err != nil {
			return t, fmt.Errorf("invalid realized_pnl %q: %w", realizedPnL.String, err)
		}
		t.RealizedPnL = &pnl
	}
	if remarks.Valid {
		t.Remarks = remarks.String
	}
	t.ExecutedAt = time.Unix(executedAt, 0).UTC()
	t.CreatedAt = time.Unix(createdAt, 0).UTC()

	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
