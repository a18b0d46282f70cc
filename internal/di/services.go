package di

import (
	"fmt"

	"github.com/aristath/backtester/internal/config"
	"github.com/aristath/backtester/internal/metrics"
	"github.com/aristath/backtester/internal/modules/backtest"
	"github.com/aristath/backtester/internal/modules/correlation"
	"github.com/aristath/backtester/internal/modules/currency"
	"github.com/aristath/backtester/internal/modules/indexes"
	"github.com/aristath/backtester/internal/resultcache"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the data access layer over the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container.HistoryDB == nil || container.CacheDB == nil {
		return fmt.Errorf("databases must be initialized before repositories")
	}

	history := container.HistoryDB
	container.IndexRepo = indexes.NewRepository(history.Conn(), history.Driver(), log)
	container.RateRepo = currency.NewRepository(history.Conn(), history.Driver(), log)
	container.ResultRepo = resultcache.NewRepository(container.CacheDB.Conn())

	log.Debug().Msg("Repositories initialized")
	return nil
}

// InitializeServices builds the engine and the services around it
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container.IndexRepo == nil || container.ResultRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	container.Metrics = metrics.New()
	container.ResultCache = resultcache.New(container.ResultRepo, cfg.Cache.TTL)

	engine := backtest.NewEngine(container.IndexRepo, EngineOptions(cfg), log).
		WithRecorder(container.Metrics)
	if container.ResultCache.Enabled() {
		engine = engine.WithCache(container.ResultCache)
	}
	container.BacktestEngine = engine

	container.CorrelationService = correlation.NewService(container.IndexRepo, log)

	log.Info().
		Bool("result_cache", container.ResultCache.Enabled()).
		Dur("result_cache_ttl", cfg.Cache.TTL).
		Msg("Services initialized")
	return nil
}

// EngineOptions maps configuration onto engine options
func EngineOptions(cfg *config.Config) backtest.Options {
	opts := backtest.DefaultOptions()
	opts.RiskFreeRate = cfg.Engine.RiskFreeRate
	opts.MonteCarloPaths = cfg.Engine.MonteCarloPaths
	opts.MonteCarloMaxPaths = cfg.Engine.MonteCarloMaxPaths
	opts.MonteCarloMaxYears = cfg.Engine.MonteCarloMaxYears
	opts.MonteCarloSeed = cfg.Engine.MonteCarloSeed
	opts.DefaultForecastYears = cfg.Engine.DefaultForecastYears
	return opts
}
