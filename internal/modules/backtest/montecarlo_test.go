package backtest

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcParams() MonteCarloParams {
	return MonteCarloParams{
		StartValue:    10000,
		StartDate:     simStart,
		MonthlyMean:   0.006,
		MonthlyStdDev: 0.04,
		Months:        60,
		Paths:         500,
		Seed:          7,
	}
}

func TestRunMonteCarlo_BandsOrdered(t *testing.T) {
	results, err := RunMonteCarlo(context.Background(), mcParams())
	require.NoError(t, err)
	require.Len(t, results, len(Bands))

	for b, band := range Bands {
		assert.Equal(t, band.Label, results[b].Label)
		assert.Equal(t, band.Percentile, results[b].Percentile)
		require.Len(t, results[b].Evolution, 61)
		assert.Equal(t, 10000.0, results[b].Evolution[0].Value)
		assert.Equal(t, "2020-01-01", results[b].Evolution[0].Date)
		assert.Equal(t, "2025-01-01", results[b].Evolution[60].Date)
		assert.Equal(t, results[b].Evolution[60].Value, results[b].FinalValue)
	}
	for b := 1; b < len(results); b++ {
		for m := range results[b].Evolution {
			assert.GreaterOrEqual(t, results[b].Evolution[m].Value, results[b-1].Evolution[m].Value)
		}
	}
	assert.Greater(t, results[4].FinalValue, results[0].FinalValue)
}

func TestRunMonteCarlo_Deterministic(t *testing.T) {
	first, err := RunMonteCarlo(context.Background(), mcParams())
	require.NoError(t, err)
	second, err := RunMonteCarlo(context.Background(), mcParams())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	p := mcParams()
	p.Seed = 8
	other, err := RunMonteCarlo(context.Background(), p)
	require.NoError(t, err)
	assert.NotEqual(t, first[2].FinalValue, other[2].FinalValue)
}

func TestRunMonteCarlo_ZeroVolatility(t *testing.T) {
	p := mcParams()
	p.MonthlyStdDev = 0
	p.Months = 12

	results, err := RunMonteCarlo(context.Background(), p)
	require.NoError(t, err)

	want := 10000 * math.Pow(1.006, 12)
	for _, r := range results {
		assert.InDelta(t, want, r.FinalValue, 1e-6)
	}
}

func TestRunMonteCarlo_MedianTracksMean(t *testing.T) {
	p := mcParams()
	p.Paths = 2000
	p.Months = 12

	results, err := RunMonteCarlo(context.Background(), p)
	require.NoError(t, err)

	// log-normal median sits below the arithmetic expectation
	expected := 10000 * math.Pow(1.006, 12)
	assert.Less(t, results[2].FinalValue, expected*1.02)
	assert.Greater(t, results[2].FinalValue, expected*0.95)
}

func TestRunMonteCarlo_Ruin(t *testing.T) {
	p := mcParams()
	p.MonthlyMean = -1
	p.Months = 3

	results, err := RunMonteCarlo(context.Background(), p)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, 0.0, r.FinalValue)
		assert.Equal(t, 10000.0, r.Evolution[0].Value)
	}
}

func TestRunMonteCarlo_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *MonteCarloParams)
	}{
		{"zero months", func(p *MonteCarloParams) { p.Months = 0 }},
		{"zero paths", func(p *MonteCarloParams) { p.Paths = 0 }},
		{"negative start", func(p *MonteCarloParams) { p.StartValue = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mcParams()
			tt.mutate(&p)
			_, err := RunMonteCarlo(context.Background(), p)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestRunMonteCarlo_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunMonteCarlo(ctx, mcParams())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLognormal(t *testing.T) {
	m, s := lognormal(0.01, 0)
	assert.InDelta(t, math.Log(1.01), m, 1e-15)
	assert.Equal(t, 0.0, s)

	mu, sigma := 0.01, 0.05
	m, s = lognormal(mu, sigma)
	mean := math.Exp(m + s*s/2)
	variance := (math.Exp(s*s) - 1) * math.Exp(2*m+s*s)
	assert.InDelta(t, 1+mu, mean, 1e-12)
	assert.InDelta(t, sigma*sigma, variance, 1e-12)
}
