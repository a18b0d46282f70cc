// Package handlers provides HTTP handlers for backtests, forecasts and
// rebalancing comparisons.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/aristath/backtester/internal/domain"
	"github.com/aristath/backtester/internal/modules/backtest"
	"github.com/rs/zerolog"
)

// Backtester is the engine surface used by the handlers
type Backtester interface {
	RunBacktest(ctx context.Context, in backtest.Input) (*backtest.Result, error)
	RunBacktestWithForecasts(ctx context.Context, in backtest.Input, forecastYears int) (*backtest.Result, error)
	Forecast(ctx context.Context, res *backtest.Result, years, paths int) ([]backtest.MonteCarloResult, backtest.ForecastStats, error)
	CompareRebalancingStrategies(ctx context.Context, in backtest.Input) ([]backtest.RebalancingComparison, error)
}

// RateStore loads historical exchange rates
type RateStore interface {
	LoadExchangeRates(ctx context.Context, start, end time.Time) ([]domain.ExchangeRatePoint, error)
}

// Handler handles backtest HTTP requests
type Handler struct {
	engine Backtester
	rates  RateStore
	log    zerolog.Logger
}

// NewHandler creates a new backtest handler
func NewHandler(engine Backtester, rates RateStore, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		rates:  rates,
		log:    log.With().Str("handler", "backtest").Logger(),
	}
}

// HandleSimulate handles POST /api/backtest/simulate
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	in, fx, err := h.toInput(r.Context(), req.BacktestRequest)
	if err != nil {
		h.writeError(w, err, "Failed to prepare backtest")
		return
	}

	var res *backtest.Result
	if req.IncludeMonteCarlo {
		res, err = h.engine.RunBacktestWithForecasts(r.Context(), in, req.ForecastYears)
	} else {
		res, err = h.engine.RunBacktest(r.Context(), in)
	}
	if err != nil {
		h.writeError(w, err, "Failed to run backtest")
		return
	}

	out := *res
	out.Evolution = fx.series(res.Evolution)
	out.Summary.AmountInvested = domain.RoundMoney(fx.fromEUR(res.Summary.AmountInvested))
	out.Summary.NetAssetValue = domain.RoundMoney(fx.fromEUR(res.Summary.NetAssetValue))
	if len(res.MonteCarlo) > 0 {
		out.MonteCarlo = make([]backtest.MonteCarloResult, len(res.MonteCarlo))
		for i, mc := range res.MonteCarlo {
			mc.Evolution = fx.series(mc.Evolution)
			mc.FinalValue = domain.RoundMoney(fx.fromEUR(mc.FinalValue))
			out.MonteCarlo[i] = mc
		}
	}
	if res.Inflation != nil {
		inf := *res.Inflation
		inf.NominalEvolution = fx.series(inf.NominalEvolution)
		inf.RealEvolution = fx.series(inf.RealEvolution)
		out.Inflation = &inf
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"result":   out,
			"currency": fx.currency,
			"input": map[string]interface{}{
				"startDate":           domain.FormatDate(in.StartDate),
				"endDate":             domain.FormatDate(in.EndDate),
				"initialAmount":       req.InitialAmount,
				"rebalancingStrategy": in.Rebalancing,
			},
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// ChartRow is one forecast month across every band
type ChartRow struct {
	Month        int     `json:"month"`
	Percentile5  float64 `json:"percentile5"`
	Percentile16 float64 `json:"percentile16"`
	Percentile50 float64 `json:"percentile50"`
	Percentile84 float64 `json:"percentile84"`
	Percentile95 float64 `json:"percentile95"`
}

// FinalValues are the last forecast values per band
type FinalValues struct {
	VeryBad float64 `json:"veryBad"`
	Bad     float64 `json:"bad"`
	Average float64 `json:"average"`
	Good    float64 `json:"good"`
	Great   float64 `json:"great"`
}

// HandleMonteCarlo handles POST /api/backtest/monte-carlo
func (h *Handler) HandleMonteCarlo(w http.ResponseWriter, r *http.Request) {
	var req MonteCarloRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	in, fx, err := h.toInput(r.Context(), req.BacktestRequest)
	if err != nil {
		h.writeError(w, err, "Failed to prepare forecast")
		return
	}

	res, err := h.engine.RunBacktest(r.Context(), in)
	if err != nil {
		h.writeError(w, err, "Failed to run backtest")
		return
	}

	bands, stats, err := h.engine.Forecast(r.Context(), res, req.ForecastYears, req.Simulations)
	if err != nil {
		h.writeError(w, err, "Failed to run forecast")
		return
	}
	if len(bands) != len(backtest.Bands) {
		h.writeError(w, errors.New("unexpected band count"), "Failed to run forecast")
		return
	}

	value := func(b, month int) float64 {
		return domain.RoundMoney(fx.fromEUR(bands[b].Evolution[month].Value))
	}
	rows := make([]ChartRow, stats.Months+1)
	for m := range rows {
		rows[m] = ChartRow{
			Month:        m,
			Percentile5:  value(0, m),
			Percentile16: value(1, m),
			Percentile50: value(2, m),
			Percentile84: value(3, m),
			Percentile95: value(4, m),
		}
	}

	stats.CurrentValue = domain.RoundMoney(fx.fromEUR(stats.CurrentValue))
	last := stats.Months

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"chartData": rows,
			"stats":     stats,
			"finalValues": FinalValues{
				VeryBad: value(0, last),
				Bad:     value(1, last),
				Average: value(2, last),
				Good:    value(3, last),
				Great:   value(4, last),
			},
			"currency": fx.currency,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleRebalancing handles POST /api/backtest/rebalancing
func (h *Handler) HandleRebalancing(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	in, _, err := h.toInput(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Failed to prepare comparison")
		return
	}

	results, err := h.engine.CompareRebalancingStrategies(r.Context(), in)
	if err != nil {
		h.writeError(w, err, "Failed to compare rebalancing strategies")
		return
	}

	sorted := make([]backtest.RebalancingComparison, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CAGR > sorted[j].CAGR })

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"strategies": sorted,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeError maps validation failures to 400 and everything else to a generic 500
func (h *Handler) writeError(w http.ResponseWriter, err error, message string) {
	var ve *backtest.ValidationError
	if errors.As(err, &ve) {
		http.Error(w, ve.Error(), http.StatusBadRequest)
		return
	}
	h.log.Error().Err(err).Msg(message)
	http.Error(w, message, http.StatusInternalServerError)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
