package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/backtester/internal/domain"
	"github.com/aristath/backtester/internal/modules/indexes"
	"github.com/aristath/backtester/internal/resultcache"
	"github.com/aristath/backtester/pkg/formulas"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options holds the engine's numeric knobs
type Options struct {
	RiskFreeRate         float64
	HorizonYears         int
	MonteCarloPaths      int
	MonteCarloMaxPaths   int
	MonteCarloMaxYears   int
	MonteCarloSeed       uint64
	DefaultForecastYears int
}

// DefaultOptions returns the engine defaults
func DefaultOptions() Options {
	return Options{
		RiskFreeRate:         0,
		HorizonYears:         DefaultMaxHorizonYears,
		MonteCarloPaths:      600,
		MonteCarloMaxPaths:   1000,
		MonteCarloMaxYears:   50,
		MonteCarloSeed:       1,
		DefaultForecastYears: 10,
	}
}

// ResultCache persists computed results across requests
type ResultCache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key, kind string, value interface{}) error
}

// Recorder receives engine instrumentation
type Recorder interface {
	ObserveRun(operation string, duration time.Duration, err error)
	ObserveCache(operation string, hit bool)
	ObserveWarnings(operation string, n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(string, time.Duration, error) {}
func (nopRecorder) ObserveCache(string, bool)               {}
func (nopRecorder) ObserveWarnings(string, int)             {}

// Engine runs backtests against an index loader. It holds no per-request state.
type Engine struct {
	loader   indexes.Loader
	opts     Options
	cache    ResultCache
	recorder Recorder
	log      zerolog.Logger
}

// NewEngine creates a new backtest engine
func NewEngine(loader indexes.Loader, opts Options, log zerolog.Logger) *Engine {
	defaults := DefaultOptions()
	if opts.HorizonYears <= 0 {
		opts.HorizonYears = defaults.HorizonYears
	}
	if opts.MonteCarloPaths <= 0 {
		opts.MonteCarloPaths = defaults.MonteCarloPaths
	}
	if opts.MonteCarloMaxPaths <= 0 {
		opts.MonteCarloMaxPaths = defaults.MonteCarloMaxPaths
	}
	if opts.MonteCarloMaxYears <= 0 {
		opts.MonteCarloMaxYears = defaults.MonteCarloMaxYears
	}
	if opts.DefaultForecastYears <= 0 {
		opts.DefaultForecastYears = defaults.DefaultForecastYears
	}

	return &Engine{
		loader:   loader,
		opts:     opts,
		recorder: nopRecorder{},
		log:      log.With().Str("component", "backtest_engine").Logger(),
	}
}

// WithCache enables the cross-request result cache
func (e *Engine) WithCache(cache ResultCache) *Engine {
	e.cache = cache
	return e
}

// WithRecorder sets the instrumentation sink
func (e *Engine) WithRecorder(r Recorder) *Engine {
	if r != nil {
		e.recorder = r
	}
	return e
}

// Options returns the effective options
func (e *Engine) Options() Options {
	return e.opts
}

// seriesLookback widens the load window before the start date so the close
// that prices the start (a month-end close for a start on the 1st) is included.
const seriesLookback = 1

// loadSeries loads every distinct index of the portfolio once, in parallel
func (e *Engine) loadSeries(ctx context.Context, loader indexes.Loader, in Input) (map[string]domain.IndexData, error) {
	codes := make([]string, 0, len(in.Portfolio))
	seen := make(map[string]bool)
	for _, item := range in.Portfolio {
		if !seen[item.IndexCode] {
			seen[item.IndexCode] = true
			codes = append(codes, item.IndexCode)
		}
	}

	from := domain.AddMonths(in.StartDate, -seriesLookback)
	loaded := make([]domain.IndexData, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	for i, code := range codes {
		g.Go(func() error {
			data, err := loader.LoadIndexData(gctx, code, from, in.EndDate)
			if err != nil {
				return fmt.Errorf("failed to load index %s: %w", code, err)
			}
			loaded[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	series := make(map[string]domain.IndexData, len(codes))
	for i, code := range codes {
		series[code] = loaded[i]
	}
	return series, nil
}

// analyze derives every statistic from a simulation
func (e *Engine) analyze(in Input, sim SimulationOutput) *Result {
	res := &Result{
		RunID:            uuid.NewString(),
		Evolution:        sim.Evolution,
		Summary:          Summarize(sim.Evolution, sim.AmountInvested, e.opts.RiskFreeRate),
		Returns:          AnalyzeReturns(sim.Evolution),
		Risk:             AnalyzeRisk(sim.Evolution),
		Horizons:         AnalyzeHorizons(sim.Evolution, e.opts.HorizonYears),
		Rebalances:       sim.Rebalances,
		Warnings:         sim.Warnings,
		InsufficientData: sim.InsufficientData,
	}
	if in.InflationRate != nil {
		res.Inflation = AnalyzeInflation(sim.Evolution, sim.AmountInvested, *in.InflationRate)
	}
	return res
}

func (e *Engine) cached(ctx context.Context, operation string, dst interface{}, parts ...interface{}) (string, bool) {
	if e.cache == nil {
		return "", false
	}
	key, err := resultcache.Key(operation, parts...)
	if err != nil {
		e.log.Warn().Err(err).Str("operation", operation).Msg("Failed to derive cache key")
		return "", false
	}
	hit, err := e.cache.Get(ctx, key, dst)
	if err != nil {
		e.log.Warn().Err(err).Str("operation", operation).Msg("Result cache read failed")
		return key, false
	}
	e.recorder.ObserveCache(operation, hit)
	return key, hit
}

func (e *Engine) store(ctx context.Context, operation, key string, value interface{}) {
	if e.cache == nil || key == "" {
		return
	}
	if err := e.cache.Set(ctx, key, operation, value); err != nil {
		e.log.Warn().Err(err).Str("operation", operation).Msg("Result cache write failed")
	}
}

// RunBacktest validates the input, loads the index series, simulates the
// portfolio and analyses the resulting evolution.
func (e *Engine) RunBacktest(ctx context.Context, in Input) (res *Result, err error) {
	const operation = "backtest"
	start := time.Now()
	defer func() { e.recorder.ObserveRun(operation, time.Since(start), err) }()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	var hit Result
	key, ok := e.cached(ctx, operation, &hit, in, e.opts)
	if ok {
		cachedID := hit.RunID
		hit.RunID = uuid.NewString()
		e.log.Debug().Str("run_id", hit.RunID).Str("cached_run_id", cachedID).Msg("Backtest served from cache")
		return &hit, nil
	}

	res, err = e.runOnce(ctx, indexes.NewRequestCache(e.loader), in)
	if err != nil {
		return nil, err
	}

	e.store(ctx, operation, key, res)
	e.log.Info().
		Str("run_id", res.RunID).
		Int("assets", len(in.Portfolio)).
		Int("months", len(res.Evolution)-1).
		Str("strategy", in.Rebalancing.String()).
		Dur("duration", time.Since(start)).
		Msg("Backtest completed")

	return res, nil
}

func (e *Engine) runOnce(ctx context.Context, loader indexes.Loader, in Input) (*Result, error) {
	series, err := e.loadSeries(ctx, loader, in)
	if err != nil {
		return nil, err
	}

	sim := Simulate(in, series)
	for _, w := range sim.Warnings {
		e.log.Warn().Str("strategy", in.Rebalancing.String()).Msg(w)
	}
	e.recorder.ObserveWarnings("backtest", len(sim.Warnings))

	return e.analyze(in, sim), nil
}

// ForecastStats are the historical moments feeding a forecast
type ForecastStats struct {
	CurrentValue  float64 `json:"currentValue"`
	MonthlyMean   float64 `json:"monthlyMean"`
	MonthlyStdDev float64 `json:"monthlyStdDev"`
	AnnualMean    float64 `json:"annualMean"`
	AnnualStdDev  float64 `json:"annualStdDev"`
	Paths         int     `json:"simulations"`
	Months        int     `json:"months"`
}

// boundForecast applies the defaults and caps to a requested forecast size
func (e *Engine) boundForecast(years, paths int) (int, int) {
	if years <= 0 {
		years = e.opts.DefaultForecastYears
	}
	if years > e.opts.MonteCarloMaxYears {
		years = e.opts.MonteCarloMaxYears
	}
	if paths <= 0 {
		paths = e.opts.MonteCarloPaths
	}
	if paths > e.opts.MonteCarloMaxPaths {
		paths = e.opts.MonteCarloMaxPaths
	}
	return years, paths
}

// Forecast projects a finished backtest forward from its final value using
// the moments of its monthly returns. Years and paths are capped.
func (e *Engine) Forecast(ctx context.Context, res *Result, years, paths int) ([]MonteCarloResult, ForecastStats, error) {
	years, paths = e.boundForecast(years, paths)

	values := returnValues(res.Returns.MonthlyReturns)
	mean, stdDev := formulas.Mean(values), formulas.PopStdDev(values)
	stats := ForecastStats{
		CurrentValue:  res.Summary.NetAssetValue,
		MonthlyMean:   mean,
		MonthlyStdDev: stdDev,
		AnnualMean:    formulas.AnnualizeMonthlyMean(mean),
		AnnualStdDev:  formulas.AnnualizeMonthlyStdDev(stdDev),
		Paths:         paths,
		Months:        years * 12,
	}

	startDate := time.Now().UTC()
	if n := len(res.Evolution); n > 0 {
		if t, err := domain.ParseDate(res.Evolution[n-1].Date); err == nil {
			startDate = t
		}
	}

	start := time.Now()
	bands, err := RunMonteCarlo(ctx, MonteCarloParams{
		StartValue:    stats.CurrentValue,
		StartDate:     startDate,
		MonthlyMean:   mean,
		MonthlyStdDev: stdDev,
		Months:        stats.Months,
		Paths:         paths,
		Seed:          e.opts.MonteCarloSeed,
	})
	e.recorder.ObserveRun("monte_carlo", time.Since(start), err)
	if err != nil {
		return nil, stats, err
	}

	e.log.Debug().
		Int("paths", paths).
		Int("months", stats.Months).
		Float64("monthly_mean", mean).
		Float64("monthly_std", stdDev).
		Dur("duration", time.Since(start)).
		Msg("Monte Carlo forecast completed")

	return bands, stats, nil
}

// RunBacktestWithForecasts runs the backtest and attaches Monte Carlo bands
// for forecastYears (0 means the configured default).
func (e *Engine) RunBacktestWithForecasts(ctx context.Context, in Input, forecastYears int) (*Result, error) {
	res, err := e.RunBacktest(ctx, in)
	if err != nil {
		return nil, err
	}

	bands, _, err := e.Forecast(ctx, res, forecastYears, 0)
	if err != nil {
		return nil, err
	}

	withForecast := *res
	withForecast.MonteCarlo = bands
	return &withForecast, nil
}

// CompareRebalancingStrategies reruns the simulation once per policy with all
// other inputs fixed. Index data is loaded once for the whole comparison.
// Results follow AllStrategies order.
func (e *Engine) CompareRebalancingStrategies(ctx context.Context, in Input) (out []RebalancingComparison, err error) {
	const operation = "rebalancing_comparison"
	start := time.Now()
	defer func() { e.recorder.ObserveRun(operation, time.Since(start), err) }()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	key, ok := e.cached(ctx, operation, &out, in, e.opts)
	if ok {
		return out, nil
	}

	series, err := e.loadSeries(ctx, indexes.NewRequestCache(e.loader), in)
	if err != nil {
		return nil, err
	}

	strategies := AllStrategies()
	out = make([]RebalancingComparison, len(strategies))
	maxCAGR := 0.0
	for i, s := range strategies {
		variant := in
		variant.Rebalancing = s
		sim := Simulate(variant, series)
		summary := Summarize(sim.Evolution, sim.AmountInvested, e.opts.RiskFreeRate)

		out[i] = RebalancingComparison{Strategy: s, StrategyLabel: s.Label(), CAGR: summary.CAGR}
		if i == 0 || summary.CAGR > maxCAGR {
			maxCAGR = summary.CAGR
		}
	}
	for i := range out {
		out[i].DifferenceFromMax = out[i].CAGR - maxCAGR
	}

	e.store(ctx, operation, key, out)
	e.log.Info().
		Int("strategies", len(out)).
		Dur("duration", time.Since(start)).
		Msg("Rebalancing comparison completed")

	return out, nil
}
