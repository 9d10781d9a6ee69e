// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir        string // Base directory for databases and reference data (always absolute)
	SymbolsCSVPath string // Equity master list (symbol,name)
	LogLevel       string
	DevMode        bool

	// Broker API credentials (opaque to the core, consumed by the token provider)
	BrokerBaseURL   string
	BrokerClientID  string
	BrokerSecretKey string
	BrokerPIN       string
	BrokerAuthCode  string // Short-lived auth code, used only when the refresh token is invalid

	Backup *BackupConfig
}

// BackupConfig holds ledger backup settings for S3-compatible storage
type BackupConfig struct {
	Enabled         bool
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PAPERTRADE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		SymbolsCSVPath:  getEnv("SYMBOLS_CSV_PATH", filepath.Join(absDataDir, "equity_names.csv")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		BrokerBaseURL:   getEnv("BROKER_BASE_URL", "https://api-t1.fyers.in/api/v3"),
		BrokerClientID:  getEnv("BROKER_CLIENT_ID", ""),
		BrokerSecretKey: getEnv("BROKER_SECRET_KEY", ""),
		BrokerPIN:       getEnv("BROKER_PIN", ""),
		BrokerAuthCode:  getEnv("BROKER_AUTH_CODE", ""),
		Backup:          loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	// Broker credentials are optional: without them the system still serves
	// portfolio views with cached or absent market data.
	if c.Backup.Enabled {
		if c.Backup.Bucket == "" || c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("backup enabled but BACKUP_BUCKET/BACKUP_ACCESS_KEY_ID/BACKUP_SECRET_ACCESS_KEY not set")
		}
	}
	return nil
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
