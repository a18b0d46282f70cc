// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Supported data store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	DataDir     string // Base directory for SQLite files (always absolute)
	DBDriver    string // sqlite or postgres
	DatabaseURL string // Postgres DSN, required when DBDriver is postgres
	LogLevel    string
	Port        int
	DevMode     bool
	Engine      EngineConfig
	Cache       CacheConfig
}

// EngineConfig holds the numeric knobs of the backtest engine
type EngineConfig struct {
	RiskFreeRate         float64 // Annual, as decimal (0.02 = 2%)
	MonteCarloPaths      int     // Default number of simulated paths
	MonteCarloMaxPaths   int     // Hard cap on requested paths
	MonteCarloMaxYears   int     // Hard cap on forecast horizon
	MonteCarloSeed       uint64  // Seed for reproducible forecasts
	DefaultForecastYears int
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	TTL             time.Duration // Zero disables the cross-request result cache
	CleanupSchedule string        // Cron expression for expired entry cleanup
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("BACKTEST_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:     absDataDir,
		DBDriver:    getEnv("DB_DRIVER", DriverSQLite),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnvAsInt("GO_PORT", 8001),
		DevMode:     getEnvAsBool("DEV_MODE", false),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Engine: EngineConfig{
			RiskFreeRate:         getEnvAsFloat("RISK_FREE_RATE", 0.0),
			MonteCarloPaths:      getEnvAsInt("MONTE_CARLO_PATHS", 600),
			MonteCarloMaxPaths:   getEnvAsInt("MONTE_CARLO_MAX_PATHS", 1000),
			MonteCarloMaxYears:   getEnvAsInt("MONTE_CARLO_MAX_YEARS", 50),
			MonteCarloSeed:       uint64(getEnvAsInt("MONTE_CARLO_SEED", 1)),
			DefaultForecastYears: getEnvAsInt("DEFAULT_FORECAST_YEARS", 10),
		},
		Cache: CacheConfig{
			TTL:             time.Duration(getEnvAsInt("RESULT_CACHE_TTL_MINUTES", 60)) * time.Minute,
			CleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "@hourly"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and consistent
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.Engine.MonteCarloPaths <= 0 || c.Engine.MonteCarloMaxPaths <= 0 {
		return fmt.Errorf("monte carlo path counts must be positive")
	}
	if c.Engine.MonteCarloMaxPaths < c.Engine.MonteCarloPaths {
		return fmt.Errorf("MONTE_CARLO_MAX_PATHS (%d) is below MONTE_CARLO_PATHS (%d)",
			c.Engine.MonteCarloMaxPaths, c.Engine.MonteCarloPaths)
	}
	if c.Engine.MonteCarloMaxYears <= 0 || c.Engine.DefaultForecastYears <= 0 {
		return fmt.Errorf("forecast horizons must be positive")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("RESULT_CACHE_TTL_MINUTES must not be negative")
	}

	return nil
}

// SQLitePath returns the path of the history database file inside DataDir
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "history.db")
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
