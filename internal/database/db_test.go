package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestMigrate_LedgerSchema(t *testing.T) {
	db := openTestDB(t, "ledger", ProfileLedger)
	require.NoError(t, db.Migrate())

	// Both tables exist and accept rows
	_, err := db.Exec(
		"INSERT INTO accounts (user_id, cash_balance, updated_at) VALUES ('u1', '100000', 0)",
	)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO transactions
		(id, user_id, symbol, display_name, side, quantity, execution_price, total_value, executed_at, created_at)
		VALUES ('t1', 'u1', 'INFY', 'Infosys', 'BUY', '10', '100', '1000', 0, 0)
	`)
	require.NoError(t, err)

	// The side CHECK constraint holds
	_, err = db.Exec(`
		INSERT INTO transactions
		(id, user_id, symbol, display_name, side, quantity, execution_price, total_value, executed_at, created_at)
		VALUES ('t2', 'u1', 'INFY', 'Infosys', 'HOLD', '10', '100', '1000', 0, 0)
	`)
	assert.Error(t, err)

	// Re-applying the schema is a no-op
	require.NoError(t, db.Migrate())
}

func TestMigrate_CacheSchema(t *testing.T) {
	db := openTestDB(t, "cache", ProfileCache)
	require.NoError(t, db.Migrate())

	_, err := db.Exec(
		"INSERT INTO quote_snapshots (symbol, data, expires_at) VALUES ('INFY', X'00', 0)",
	)
	require.NoError(t, err)
}

func TestWithTransaction_CommitsOnSuccess(t *testing.T) {
	db := openTestDB(t, "ledger", ProfileLedger)
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO accounts (user_id, cash_balance, updated_at) VALUES ('u1', '1', 0)")
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := openTestDB(t, "ledger", ProfileLedger)
	require.NoError(t, db.Migrate())

	boom := errors.New("boom")
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO accounts (user_id, cash_balance, updated_at) VALUES ('u1', '1', 0)"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count))
	assert.Equal(t, 0, count, "failed transaction leaves no rows")
}

func TestWithTransaction_RecoversFromPanic(t *testing.T) {
	db := openTestDB(t, "ledger", ProfileLedger)
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(*sql.Tx) error {
		panic("unexpected")
	})
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t, "ledger", ProfileLedger)
	require.NoError(t, db.Migrate())
	assert.NoError(t, db.HealthCheck(context.Background()))
}
