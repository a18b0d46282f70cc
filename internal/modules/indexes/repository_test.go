package indexes

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/aristath/backtester/internal/database"
	"github.com/aristath/backtester/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.ApplySchema(db, "history"))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestRepository(t *testing.T) *Repository {
	return NewRepository(setupTestDB(t), database.DriverSQLite, zerolog.Nop())
}

func utc(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRepository_LoadIndexData(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertIndexData(ctx, "msci_world", []domain.IndexDataPoint{
		{Date: "2020-03-01", Value: 103},
		{Date: "2020-01-01", Value: 100},
		{Date: "2020-02-01", Value: 101},
		{Date: "2020-04-01", Value: 0},
	}))
	// overwrite an existing point
	require.NoError(t, repo.UpsertIndexData(ctx, "msci_world", []domain.IndexDataPoint{{Date: "2020-02-01", Value: 102}}))

	t.Run("ascending and clipped inclusive", func(t *testing.T) {
		data, err := repo.LoadIndexData(ctx, "msci_world", utc("2020-01-01"), utc("2020-02-01"))
		require.NoError(t, err)
		assert.Equal(t, "msci_world", data.IndexCode)
		assert.Equal(t, []domain.IndexDataPoint{
			{Date: "2020-01-01", Value: 100},
			{Date: "2020-02-01", Value: 102},
		}, data.Points)
	})

	t.Run("unbounded range drops invalid levels", func(t *testing.T) {
		data, err := repo.LoadIndexData(ctx, "msci_world", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, data.Points, 3)
		assert.Equal(t, "2020-03-01", data.Points[2].Date)
	})

	t.Run("unknown index is empty, not an error", func(t *testing.T) {
		data, err := repo.LoadIndexData(ctx, "nope", time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.True(t, data.Empty())
		assert.NotNil(t, data.Points)
	})
}

func TestRepository_GetIndexCodeForETF(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.UpsertMapping(ctx, "FTSE All-World", "ftse_all_world"))

	tests := []struct {
		name      string
		indexName string
		code      string
		found     bool
	}{
		{name: "exact mapping", indexName: "FTSE All-World", code: "ftse_all_world", found: true},
		{name: "pattern fallback", indexName: "MSCI World Net Total Return", code: "msci_world", found: true},
		{name: "pattern is case-insensitive", indexName: "s&p 500 index", code: "sp500", found: true},
		{name: "emerging markets", indexName: "MSCI Emerging Markets IMI", code: "msci_em", found: true},
		{name: "unknown", indexName: "Bloomberg Global Aggregate", found: false},
		{name: "empty", indexName: "  ", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, found, err := repo.GetIndexCodeForETF(ctx, tt.indexName)
			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRepository_GetAvailableIndexes(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertMapping(ctx, "S&P 500", "sp500"))
	require.NoError(t, repo.UpsertMapping(ctx, "S&P 500 Index", "sp500"))
	require.NoError(t, repo.UpsertMapping(ctx, "MSCI Europe", "msci_europe"))
	require.NoError(t, repo.UpsertIndexData(ctx, "sp500", []domain.IndexDataPoint{
		{Date: "2000-01-01", Value: 1469},
		{Date: "2000-02-01", Value: 1394},
		{Date: "2000-03-01", Value: 1366},
	}))
	// unmapped series is not listed
	require.NoError(t, repo.UpsertIndexData(ctx, "orphan", []domain.IndexDataPoint{{Date: "2000-01-01", Value: 1}}))

	indexes, err := repo.GetAvailableIndexes(ctx)
	require.NoError(t, err)
	require.Len(t, indexes, 1)
	assert.Equal(t, AvailableIndex{
		IndexCode:  "sp500",
		IndexName:  "S&P 500",
		StartDate:  "2000-01-01",
		EndDate:    "2000-03-01",
		DataPoints: 3,
	}, indexes[0])
}
