// Command server runs the paper-trading core: databases, market data cache
// and scheduled maintenance. The UI layer talks to the services in-process;
// there is no HTTP surface here.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/suwi/papertrade/internal/config"
	"github.com/suwi/papertrade/internal/di"
	"github.com/suwi/papertrade/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting papertrade")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	scheduler := startMaintenance(container, log)

	// Block until shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		log.Warn().Msg("Timed out waiting for running jobs")
	}

	// Keep WAL files small across restarts
	for name, db := range container.Databases() {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			log.Warn().Err(err).Str("database", name).Msg("Shutdown WAL checkpoint failed")
		}
	}

	log.Info().Msg("Shutdown complete")
}

// startMaintenance schedules the recurring jobs: cache sweeps every five
// minutes, database health checks hourly and the nightly backup at 2 AM.
func startMaintenance(c *di.Container, log zerolog.Logger) *cron.Cron {
	jobLog := log.With().Str("component", "maintenance").Logger()
	scheduler := cron.New()

	mustSchedule(scheduler, jobLog, "cache_sweep", "@every 5m", func() {
		removed := c.QuoteCache.DeleteExpired()
		persisted, err := c.QuoteStore.DeleteExpired()
		if err != nil {
			jobLog.Warn().Err(err).Msg("Snapshot store sweep failed")
		}
		jobLog.Debug().
			Int("memory_removed", removed).
			Int64("store_removed", persisted).
			Msg("Cache sweep completed")
	})

	mustSchedule(scheduler, jobLog, "health_check", "@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		for name, db := range c.Databases() {
			if err := db.HealthCheck(ctx); err != nil {
				jobLog.Error().Err(err).Str("database", name).Msg("Database health check failed")
			}
		}
	})

	if c.BackupService != nil {
		mustSchedule(scheduler, jobLog, "nightly_backup", "0 2 * * *", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
			defer cancel()

			if err := c.BackupService.CreateAndUploadBackup(ctx); err != nil {
				jobLog.Error().Err(err).Msg("Backup failed")
				return
			}
			if err := c.BackupService.RotateOldBackups(ctx, c.Config.Backup.RetentionDays); err != nil {
				jobLog.Error().Err(err).Msg("Backup rotation failed")
			}
		})
	}

	scheduler.Start()
	jobLog.Info().Msg("Maintenance jobs scheduled")
	return scheduler
}

func mustSchedule(scheduler *cron.Cron, log zerolog.Logger, name, spec string, fn func()) {
	if _, err := scheduler.AddFunc(spec, fn); err != nil {
		log.Fatal().Err(err).Str("job", name).Str("spec", spec).Msg("Failed to schedule job")
	}
}
