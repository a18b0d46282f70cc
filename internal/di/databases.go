package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/backtester/internal/config"
	"github.com/aristath/backtester/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the history and cache databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// history - index prices, mapping and FX rates; shared Postgres in production
	historyDB, err := database.New(database.Config{
		Driver:  cfg.DBDriver,
		Path:    cfg.SQLitePath(),
		DSN:     cfg.DatabaseURL,
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	if err := historyDB.Migrate(); err != nil {
		historyDB.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	container.HistoryDB = historyDB

	// cache - ephemeral computed results, local SQLite regardless of driver
	cacheDB, err := database.New(database.Config{
		Driver:  database.DriverSQLite,
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		historyDB.Close()
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	if err := cacheDB.Migrate(); err != nil {
		historyDB.Close()
		cacheDB.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}
	container.CacheDB = cacheDB

	log.Info().
		Str("history_driver", historyDB.Driver()).
		Str("cache_path", cacheDB.Path()).
		Msg("Databases initialized")

	return container, nil
}
