package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/backtester/internal/config"
	"github.com/aristath/backtester/internal/di"
	"github.com/aristath/backtester/internal/domain"
	"github.com/aristath/backtester/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) (*Server, *di.Container) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	cfg := &config.Config{
		DataDir:  t.TempDir(),
		DBDriver: config.DriverSQLite,
		Engine: config.EngineConfig{
			MonteCarloPaths:      50,
			MonteCarloMaxPaths:   100,
			MonteCarloMaxYears:   10,
			MonteCarloSeed:       1,
			DefaultForecastYears: 2,
		},
		Cache: config.CacheConfig{TTL: time.Hour, CleanupSchedule: "@hourly"},
	}

	sched := scheduler.New(log)
	container, jobs, err := di.Wire(cfg, sched, log)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	s := New(Config{Log: log, Port: 0, DevMode: true, Container: container, Jobs: jobs, Scheduler: sched})
	s.systemHandlers.cpuPercent = func() (float64, error) { return 12.5, nil }
	s.systemHandlers.memPercent = func() (float64, error) { return 0, errors.New("unavailable") }
	return s, container
}

func do(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(method, path, bytes.NewReader(body)))
	return w
}

func TestHealth(t *testing.T) {
	s, _ := setupServer(t)

	w := do(s, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "backtester", response["service"])
}

func TestHealth_DatabaseDown(t *testing.T) {
	s, container := setupServer(t)
	require.NoError(t, container.CacheDB.Close())

	w := do(s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSystemStatus(t *testing.T) {
	s, _ := setupServer(t)

	w := do(s, http.MethodGet, "/api/system/status", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var response SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, 12.5, response.CPUPercent)
	assert.Equal(t, 0.0, response.MemoryPercent)
	assert.Greater(t, response.Goroutines, 0)
	require.Len(t, response.Databases, 2)
	assert.Equal(t, "history", response.Databases[0].Name)
	assert.Equal(t, "cache", response.Databases[1].Name)
	assert.ElementsMatch(t, []string{"result_cache_cleanup", "wal_checkpoint"}, response.Jobs)
}

func TestDatabaseStats(t *testing.T) {
	s, _ := setupServer(t)

	w := do(s, http.MethodGet, "/api/system/databases", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Data, 2)
	assert.Equal(t, "sqlite", response.Data[0]["driver"])
}

func TestTriggerJob(t *testing.T) {
	s, _ := setupServer(t)

	tests := []struct {
		name       string
		job        string
		wantStatus int
	}{
		{name: "cleanup", job: "result_cache_cleanup", wantStatus: http.StatusOK},
		{name: "wal", job: "wal_checkpoint", wantStatus: http.StatusOK},
		{name: "unknown", job: "sync_prices", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, http.MethodPost, "/api/system/jobs/"+tt.job, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := setupServer(t)

	do(s, http.MethodGet, "/health", nil)
	w := do(s, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
	assert.Contains(t, w.Body.String(), `route="/health"`)
}

func TestAPIRoutes(t *testing.T) {
	s, container := setupServer(t)
	ctx := context.Background()

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for code, step := range map[string]float64{"WORLD": 1, "BONDS": 0.2} {
		points := make([]domain.IndexDataPoint, 37)
		for i := range points {
			points[i] = domain.IndexDataPoint{Date: domain.FormatDate(domain.AddMonths(start, i)), Value: 100 + step*float64(i)}
		}
		require.NoError(t, container.IndexRepo.UpsertIndexData(ctx, code, points))
	}
	require.NoError(t, container.RateRepo.UpsertRates(ctx, []domain.ExchangeRatePoint{
		{Date: "2020-01-01", EURUSD: 1.1, EURCZK: 25, USDCZK: 25 / 1.1},
	}))

	portfolio := []map[string]interface{}{
		{"isin": "A", "name": "World", "weight": 0.7, "ter": 0.002, "indexCode": "WORLD"},
		{"isin": "B", "name": "Bonds", "weight": 0.3, "ter": 0.001, "indexCode": "BONDS"},
	}
	backtestBody, err := json.Marshal(map[string]interface{}{
		"portfolio":     portfolio,
		"startDate":     "2020-01-01",
		"endDate":       "2023-01-01",
		"initialAmount": 10000,
		"currency":      "CZK",
	})
	require.NoError(t, err)
	correlationBody, err := json.Marshal(map[string]interface{}{
		"portfolio": portfolio,
		"startDate": "2020-01-01",
		"endDate":   "2023-01-01",
	})
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
		body   []byte
	}{
		{http.MethodPost, "/api/backtest/simulate", backtestBody},
		{http.MethodPost, "/api/backtest/monte-carlo", backtestBody},
		{http.MethodPost, "/api/backtest/rebalancing", backtestBody},
		{http.MethodPost, "/api/backtest/correlation", correlationBody},
		{http.MethodGet, "/api/backtest/indexes", nil},
		{http.MethodGet, "/api/backtest/indexes/WORLD/data?from=2020-01-01&to=2020-12-31", nil},
		{http.MethodGet, "/api/currency/rates?from=2020-01-01", nil},
		{http.MethodGet, "/api/currency/available-currencies", nil},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(s, tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}
