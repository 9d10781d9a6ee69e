package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/suwi/papertrade/internal/clients/fyers"
	"github.com/suwi/papertrade/internal/config"
	"github.com/suwi/papertrade/internal/marketdata"
	"github.com/suwi/papertrade/internal/modules/accounts"
	"github.com/suwi/papertrade/internal/modules/directory"
	"github.com/suwi/papertrade/internal/modules/ledger"
	"github.com/suwi/papertrade/internal/modules/portfolio"
	"github.com/suwi/papertrade/internal/modules/trading"
	"github.com/suwi/papertrade/internal/quotecache"
	"github.com/suwi/papertrade/internal/reliability"
)

// Wire creates the full dependency graph
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Log:    log,
	}

	if err := c.initDatabases(); err != nil {
		return nil, err
	}

	// Symbol directory; a missing master list degrades to raw symbols
	dir, err := directory.LoadCSV(cfg.SymbolsCSVPath, log)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.SymbolsCSVPath).Msg("Symbol list unavailable, display names disabled")
		c.Directory = directory.Empty(log)
	} else {
		c.Directory = dir
	}

	// Broker client stack
	c.TokenProvider = fyers.NewTokenProvider(
		cfg.BrokerBaseURL,
		cfg.BrokerClientID,
		cfg.BrokerSecretKey,
		cfg.BrokerPIN,
		cfg.BrokerAuthCode,
		log,
	)
	c.BrokerClient = fyers.NewClient(cfg.BrokerBaseURL, cfg.BrokerClientID, c.TokenProvider, log)

	// Market data
	c.QuoteCache = quotecache.New()
	c.QuoteStore = quotecache.NewStore(c.CacheDB.Conn())
	c.Gateway = marketdata.New(c.BrokerClient, c.QuoteCache, c.QuoteStore, c.Directory, log)

	// Repositories
	c.LedgerRepo = ledger.NewRepository(c.LedgerDB.Conn(), log)
	c.AccountsRepo = accounts.NewRepository(c.LedgerDB.Conn(), log)

	// Services
	c.PortfolioService = portfolio.NewService(c.LedgerRepo, c.Gateway, log)
	c.TradingService = trading.NewService(c.LedgerDB, c.LedgerRepo, c.AccountsRepo, c.Gateway, log)

	if cfg.Backup.Enabled {
		storage, err := reliability.NewS3Client(
			context.Background(),
			cfg.Backup.Endpoint,
			cfg.Backup.Bucket,
			cfg.Backup.AccessKeyID,
			cfg.Backup.SecretAccessKey,
			log,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create backup storage client: %w", err)
		}
		c.BackupService = reliability.NewBackupService(storage, c.Databases(), cfg.DataDir, log)
	}

	log.Info().Msg("Dependency graph wired")
	return c, nil
}
