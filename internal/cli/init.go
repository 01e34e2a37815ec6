// Package cli provides shared startup helpers for the fixops binaries.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"fixops/internal/config"
	applog "fixops/internal/log"
	"fixops/internal/storage"
)

// SetupLogger initializes structured logging for a binary and installs
// it as the default logger.
func SetupLogger(component string) *applog.Logger {
	logConfig := applog.DefaultConfig()
	logConfig.Component = component
	logger := applog.New(logConfig)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. Absence is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration, exiting on validation
// failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the repository, exiting on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}
