package backtest

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"github.com/aristath/backtester/internal/domain"
	"github.com/aristath/backtester/pkg/formulas"
	"golang.org/x/sync/errgroup"
)

// Band is one canonical forecast percentile
type Band struct {
	Percentile float64
	Label      string
}

// Bands are the reported percentiles, ascending: -2σ, -1σ, median, +1σ, +2σ
var Bands = []Band{
	{Percentile: 0.023, Label: "Very bad (-2σ)"},
	{Percentile: 0.159, Label: "Bad (-σ)"},
	{Percentile: 0.5, Label: "Average"},
	{Percentile: 0.841, Label: "Good (σ)"},
	{Percentile: 0.977, Label: "Great (2σ)"},
}

// MonteCarloParams configures a forecast
type MonteCarloParams struct {
	StartValue    float64
	StartDate     time.Time // Date of month 0
	MonthlyMean   float64   // Arithmetic mean of historical monthly returns
	MonthlyStdDev float64   // Population stdev of historical monthly returns
	Months        int
	Paths         int
	Seed          uint64 // Same seed and params give the same bands
}

// lognormal returns the log-space drift and volatility whose gross return
// exp(m + s·Z) has arithmetic mean 1+μ and standard deviation σ.
func lognormal(mu, sigma float64) (m, s float64) {
	growth := 1 + mu
	s2 := math.Log(1 + (sigma*sigma)/(growth*growth))
	return math.Log(growth) - s2/2, math.Sqrt(s2)
}

// RunMonteCarlo simulates Paths independent paths of monthly log-normal returns
// moment-matched to the historical mean and stdev, then takes the cross-path
// percentile of every month for each band. Paths run in parallel, each with
// its own seeded generator.
func RunMonteCarlo(ctx context.Context, p MonteCarloParams) ([]MonteCarloResult, error) {
	if p.Months <= 0 {
		return nil, invalid("forecastYears", ErrInvalidForecast, "got %d months", p.Months)
	}
	if p.Paths <= 0 {
		return nil, invalid("simulations", ErrInvalidForecast, "got %d paths", p.Paths)
	}
	if badAmount(p.StartValue) {
		return nil, invalid("startValue", ErrInvalidAmount, "got %v", p.StartValue)
	}

	ruined := 1+p.MonthlyMean <= 0
	var m, s float64
	if !ruined {
		m, s = lognormal(p.MonthlyMean, math.Max(0, p.MonthlyStdDev))
	}

	paths := make([][]float64, p.Paths)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := make([]float64, p.Months+1)
			path[0] = p.StartValue
			if ruined {
				paths[i] = path
				return nil
			}
			rng := rand.New(rand.NewPCG(p.Seed, uint64(i)))
			for month := 1; month <= p.Months; month++ {
				path[month] = path[month-1] * math.Exp(m+s*rng.NormFloat64())
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("monte carlo interrupted: %w", err)
	}

	results := make([]MonteCarloResult, len(Bands))
	for b, band := range Bands {
		results[b] = MonteCarloResult{
			Percentile: band.Percentile,
			Label:      band.Label,
			Evolution:  make([]domain.TimeSeriesPoint, p.Months+1),
		}
	}

	column := make([]float64, p.Paths)
	for month := 0; month <= p.Months; month++ {
		for i, path := range paths {
			column[i] = path[month]
		}
		sort.Float64s(column)
		date := domain.FormatDate(domain.AddMonths(p.StartDate, month))
		for b, band := range Bands {
			results[b].Evolution[month] = domain.TimeSeriesPoint{
				Date:  date,
				Value: formulas.PercentileSorted(column, band.Percentile),
			}
		}
	}

	for b := range results {
		results[b].FinalValue = results[b].Evolution[p.Months].Value
	}

	return results, nil
}
