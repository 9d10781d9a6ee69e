package di

import (
	"fmt"
	"path/filepath"

	"github.com/suwi/papertrade/internal/database"
)

// initDatabases opens and migrates the application databases.
// The ledger uses the maximum-safety profile, the quote cache the
// maximum-speed one.
func (c *Container) initDatabases() error {
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(c.Config.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		return fmt.Errorf("failed to open ledger database: %w", err)
	}
	c.LedgerDB = ledgerDB

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(c.Config.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	c.CacheDB = cacheDB

	for name, db := range c.Databases() {
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("failed to migrate %s database: %w", name, err)
		}
	}

	return nil
}
