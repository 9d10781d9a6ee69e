/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds all application dependencies and is the single source
 * of truth for service instances. It is created by Wire() and handed to
 * cmd/server and background jobs.
 */
package di

import (
	"github.com/rs/zerolog"

	"github.com/suwi/papertrade/internal/clients/fyers"
	"github.com/suwi/papertrade/internal/config"
	"github.com/suwi/papertrade/internal/database"
	"github.com/suwi/papertrade/internal/domain"
	"github.com/suwi/papertrade/internal/marketdata"
	"github.com/suwi/papertrade/internal/modules/accounts"
	"github.com/suwi/papertrade/internal/modules/ledger"
	"github.com/suwi/papertrade/internal/modules/portfolio"
	"github.com/suwi/papertrade/internal/modules/trading"
	"github.com/suwi/papertrade/internal/quotecache"
	"github.com/suwi/papertrade/internal/reliability"
)

// Container holds all dependencies for the application
type Container struct {
	Config *config.Config
	Log    zerolog.Logger

	// Databases
	LedgerDB *database.DB // Immutable transaction ledger and account balances
	CacheDB  *database.DB // Ephemeral quote snapshots

	// Clients
	TokenProvider *fyers.TokenProvider
	BrokerClient  domain.BrokerClient
	Directory     domain.SymbolDirectory

	// Market data
	QuoteCache *quotecache.Cache
	QuoteStore *quotecache.Store
	Gateway    *marketdata.Gateway

	// Repositories
	LedgerRepo   *ledger.Repository
	AccountsRepo *accounts.Repository

	// Services
	PortfolioService *portfolio.Service
	TradingService   *trading.Service

	// Backup, nil when disabled in config
	BackupService *reliability.BackupService
}

// Databases returns the named database handles, for maintenance and backup
func (c *Container) Databases() map[string]*database.DB {
	return map[string]*database.DB{
		"ledger": c.LedgerDB,
		"cache":  c.CacheDB,
	}
}

// Close releases all held resources
func (c *Container) Close() {
	if c.CacheDB != nil {
		if err := c.CacheDB.Close(); err != nil {
			c.Log.Warn().Err(err).Msg("Failed to close cache database")
		}
	}
	if c.LedgerDB != nil {
		if err := c.LedgerDB.Close(); err != nil {
			c.Log.Warn().Err(err).Msg("Failed to close ledger database")
		}
	}
}
