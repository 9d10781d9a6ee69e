package quotecache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/suwi/papertrade/internal/domain"
)

// Store persists quote snapshots in cache.db so restarts do not hammer the
// broker. Rows are msgpack blobs with an expiration timestamp. The in-memory
// Cache is the first tier; this store is only consulted on a memory miss.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a snapshot store over the cache database
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// NewStoreWithClock creates a store with an injected clock, for tests
func NewStoreWithClock(db *sql.DB, now func() time.Time) *Store {
	return &Store{db: db, now: now}
}

// Put upserts a snapshot with expiry = now + ttl
func (s *Store) Put(snapshot domain.QuoteSnapshot, ttl time.Duration) error {
	data, err := msgpack.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	expiresAt := s.now().Add(ttl).Unix()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO quote_snapshots (symbol, data, expires_at) VALUES (?, ?, ?)",
		snapshot.Symbol, data, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot for %s: %w", snapshot.Symbol, err)
	}

	return nil
}

// GetIfFresh returns the snapshot only if it has not expired.
// Returns (nil, nil) when the symbol is unknown or stale.
func (s *Store) GetIfFresh(symbol string) (*domain.QuoteSnapshot, error) {
	var data []byte
	err := s.db.QueryRow(
		"SELECT data FROM quote_snapshots WHERE symbol = ? AND expires_at > ?",
		symbol, s.now().Unix(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot for %s: %w", symbol, err)
	}

	var snapshot domain.QuoteSnapshot
	if err := msgpack.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot for %s: %w", symbol, err)
	}

	return &snapshot, nil
}

// DeleteExpired removes stale rows and returns how many were deleted
func (s *Store) DeleteExpired() (int64, error) {
	res, err := s.db.Exec(
		"DELETE FROM quote_snapshots WHERE expires_at <= ?",
		s.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired snapshots: %w", err)
	}
	return res.RowsAffected()
}
