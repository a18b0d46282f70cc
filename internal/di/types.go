// Package di provides dependency injection type definitions.
//
// Container holds every long-lived dependency of the service. It is built
// by Wire and handed to the HTTP server and the scheduler.
package di

import (
	"github.com/aristath/backtester/internal/database"
	"github.com/aristath/backtester/internal/metrics"
	"github.com/aristath/backtester/internal/modules/backtest"
	"github.com/aristath/backtester/internal/modules/correlation"
	"github.com/aristath/backtester/internal/modules/currency"
	"github.com/aristath/backtester/internal/modules/indexes"
	"github.com/aristath/backtester/internal/resultcache"
	"github.com/aristath/backtester/internal/scheduler"
)

// Container holds all dependencies for the application
type Container struct {
	// Databases
	HistoryDB *database.DB // Index prices, index mapping, exchange rates (SQLite or Postgres)
	CacheDB   *database.DB // Cross-request result cache (always SQLite)

	// Repositories
	IndexRepo  *indexes.Repository
	RateRepo   *currency.Repository
	ResultRepo *resultcache.Repository

	// Services
	ResultCache        *resultcache.Cache
	Metrics            *metrics.Metrics
	BacktestEngine     *backtest.Engine
	CorrelationService *correlation.Service
}

// JobInstances holds the background jobs so they can be scheduled and triggered manually
type JobInstances struct {
	ResultCacheCleanup scheduler.Job
	WALCheckpoint      scheduler.Job
}

// Databases returns the open databases in a stable order
func (c *Container) Databases() []*database.DB {
	var out []*database.DB
	for _, db := range []*database.DB{c.HistoryDB, c.CacheDB} {
		if db != nil {
			out = append(out, db)
		}
	}
	return out
}

// Close closes every open database
func (c *Container) Close() error {
	var firstErr error
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
