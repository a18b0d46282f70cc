package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/backtester/internal/domain"
	testingpkg "github.com/aristath/backtester/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var simStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func seriesMap(series ...domain.IndexData) map[string]domain.IndexData {
	out := make(map[string]domain.IndexData, len(series))
	for _, s := range series {
		out[s.IndexCode] = s
	}
	return out
}

func halfHalf(strategy Strategy, months int) Input {
	return Input{
		Portfolio: []PortfolioItem{
			{Name: "A", Weight: 0.5, IndexCode: "A"},
			{Name: "B", Weight: 0.5, IndexCode: "B"},
		},
		StartDate:     simStart,
		EndDate:       domain.AddMonths(simStart, months),
		InitialAmount: 1000,
		Rebalancing:   strategy,
	}
}

func assertValues(t *testing.T, want []float64, got []domain.TimeSeriesPoint) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i].Value, 1e-9, "point %d", i)
	}
}

func TestSimulate_SamePhaseAssets(t *testing.T) {
	series := seriesMap(
		testingpkg.AlternatingSeries("A", simStart, 100, 0.1, 4),
		testingpkg.AlternatingSeries("B", simStart, 100, 0.1, 4),
	)

	out := Simulate(halfHalf(StrategyNone, 4), series)

	assertValues(t, []float64{1000, 1100, 990, 1089, 980.1}, out.Evolution)
	assert.Equal(t, 0, out.Rebalances)
	assert.False(t, out.InsufficientData)
	assert.Empty(t, out.Warnings)
}

func TestSimulate_OppositePhaseAssets(t *testing.T) {
	up := testingpkg.AlternatingSeries("A", simStart, 100, 0.1, 4)
	down := testingpkg.MonthlySeries("B", simStart, 100, 90, 99, 89.1, 98.01)

	t.Run("no rebalancing drifts", func(t *testing.T) {
		out := Simulate(halfHalf(StrategyNone, 4), seriesMap(up, down))
		assertValues(t, []float64{1000, 1000, 990, 990, 980.1}, out.Evolution)
		assert.Equal(t, 0, out.Rebalances)
	})

	t.Run("monthly rebalancing holds flat", func(t *testing.T) {
		out := Simulate(halfHalf(StrategyMonthly, 4), seriesMap(up, down))
		assertValues(t, []float64{1000, 1000, 1000, 1000, 1000}, out.Evolution)
		assert.Equal(t, 4, out.Rebalances)
		assert.InDelta(t, 0.5, out.FinalWeights[0], 1e-12)
	})
}

func TestSimulate_EvolutionShape(t *testing.T) {
	series := seriesMap(
		testingpkg.GrowthSeries("A", simStart, 100, 0.01, 24),
		testingpkg.GrowthSeries("B", simStart, 50, 0.005, 24),
	)

	out := Simulate(halfHalf(StrategyYearly, 24), series)

	require.Len(t, out.Evolution, 25)
	assert.Equal(t, "2020-01-01", out.Evolution[0].Date)
	assert.Equal(t, 1000.0, out.Evolution[0].Value)
	assert.Equal(t, "2022-01-01", out.Evolution[24].Date)
	assert.Equal(t, 2, out.Rebalances)
	for i := 1; i < len(out.Evolution); i++ {
		assert.Greater(t, out.Evolution[i].Date, out.Evolution[i-1].Date)
	}
}

func TestSimulate_NoneDriftsTowardWinner(t *testing.T) {
	series := seriesMap(
		testingpkg.GrowthSeries("A", simStart, 100, 0.02, 12),
		testingpkg.MonthlySeries("B", simStart, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100),
	)

	out := Simulate(halfHalf(StrategyNone, 12), series)

	grown := 500 * math.Pow(1.02, 12)
	assert.InDelta(t, grown, out.FinalValues[0], 1e-9)
	assert.InDelta(t, 500, out.FinalValues[1], 1e-9)
	assert.InDelta(t, grown/(grown+500), out.FinalWeights[0], 1e-12)
}

func TestSimulate_ExpenseDrag(t *testing.T) {
	flat := testingpkg.GrowthSeries("A", simStart, 100, 0, 12)
	in := Input{
		Portfolio:     []PortfolioItem{{Weight: 1, TER: 0.12, IndexCode: "A"}},
		StartDate:     simStart,
		EndDate:       domain.AddMonths(simStart, 12),
		InitialAmount: 1000,
		Rebalancing:   StrategyNone,
	}

	out := Simulate(in, seriesMap(flat))

	assert.InDelta(t, 1000*math.Pow(0.99, 12), out.Evolution[12].Value, 1e-9)
}

func TestSimulate_Contributions(t *testing.T) {
	flat := testingpkg.GrowthSeries("A", simStart, 100, 0, 6)
	in := Input{
		Portfolio:     []PortfolioItem{{Weight: 1, IndexCode: "A"}},
		StartDate:     simStart,
		EndDate:       domain.AddMonths(simStart, 6),
		InitialAmount: 1000,
		Rebalancing:   StrategyNone,
		Contributions: &ContributionPlan{Amount: 100, Frequency: FrequencyQuarterly},
	}

	out := Simulate(in, seriesMap(flat))

	assert.InDelta(t, 1200, out.AmountInvested, 1e-9)
	assertValues(t, []float64{1000, 1000, 1000, 1100, 1100, 1100, 1200}, out.Evolution)
}

func TestSimulate_ContributionsOnlyStartFromZero(t *testing.T) {
	series := seriesMap(
		testingpkg.GrowthSeries("A", simStart, 100, 0, 3),
		testingpkg.GrowthSeries("B", simStart, 100, 0, 3),
	)
	in := halfHalf(StrategyNone, 3)
	in.InitialAmount = 0
	in.Contributions = &ContributionPlan{Amount: 100, Frequency: FrequencyMonthly}

	out := Simulate(in, series)

	assertValues(t, []float64{0, 100, 200, 300}, out.Evolution)
	assert.InDelta(t, 150, out.FinalValues[0], 1e-9)
	assert.InDelta(t, 150, out.FinalValues[1], 1e-9)
}

func TestSimulate_ToleranceBand(t *testing.T) {
	series := seriesMap(
		testingpkg.GrowthSeries("A", simStart, 100, 0.2, 4),
		testingpkg.GrowthSeries("B", simStart, 100, 0, 4),
	)

	tests := []struct {
		strategy   Strategy
		rebalances int
	}{
		{StrategyTolerance5, 2},
		{StrategyTolerance20, 0},
		{StrategyNone, 0},
		{StrategyQuarterly, 1},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			out := Simulate(halfHalf(tt.strategy, 4), series)
			assert.Equal(t, tt.rebalances, out.Rebalances)
		})
	}
}

func TestSimulate_AssetWithoutData(t *testing.T) {
	series := seriesMap(testingpkg.GrowthSeries("A", simStart, 100, 0.1, 2))
	in := halfHalf(StrategyMonthly, 2)
	in.Contributions = &ContributionPlan{Amount: 100, Frequency: FrequencyMonthly}

	out := Simulate(in, series)

	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "B (B)")
	assert.True(t, out.InsufficientData)
	assert.InDelta(t, 500, out.FinalValues[1], 1e-9)
	// A takes every contribution and is never rebalanced against B
	assert.InDelta(t, ((500+100)*1.1+100)*1.1, out.FinalValues[0], 1e-9)
	assert.Equal(t, 2, out.Rebalances)
}

func TestSimulate_NoAssetHasData(t *testing.T) {
	out := Simulate(halfHalf(StrategyMonthly, 3), map[string]domain.IndexData{})

	assert.Len(t, out.Warnings, 2)
	assertValues(t, []float64{1000, 1000, 1000, 1000}, out.Evolution)
}

func TestSimulate_LateStartAndEarlyEnd(t *testing.T) {
	late := testingpkg.MonthlySeries("B", domain.AddMonths(simStart, 2), 100, 110, 121)
	short := testingpkg.MonthlySeries("A", simStart, 100, 100)

	out := Simulate(halfHalf(StrategyNone, 4), seriesMap(short, late))

	require.Len(t, out.Warnings, 2)
	assert.Contains(t, out.Warnings[0], "ends 2020-02-01")
	assert.Contains(t, out.Warnings[1], "starts 2020-03-01")
	// B is held flat until its first level, then follows the index
	assertValues(t, []float64{1000, 1000, 1000, 1050, 1105}, out.Evolution)
}

func TestSimulate_GraceWindow(t *testing.T) {
	// first level lands on a Monday after a weekend start date
	a := domain.IndexData{IndexCode: "A", Points: []domain.IndexDataPoint{
		{Date: "2020-02-03", Value: 100},
		{Date: "2020-03-02", Value: 110},
	}}
	in := Input{
		Portfolio:     []PortfolioItem{{Weight: 1, IndexCode: "A"}},
		StartDate:     time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		InitialAmount: 1000,
	}

	out := Simulate(in, seriesMap(a))

	assert.Empty(t, out.Warnings)
	assertValues(t, []float64{1000, 1000}, out.Evolution)
}

func TestLevelAt(t *testing.T) {
	series := []domain.IndexDataPoint{
		{Date: "2020-01-02", Value: 1},
		{Date: "2020-01-31", Value: 2},
		{Date: "2020-03-01", Value: 3},
	}

	tests := []struct {
		date string
		want float64
		ok   bool
	}{
		{"2019-12-20", 0, false},
		{"2019-12-28", 1, true},
		{"2020-01-02", 1, true},
		{"2020-02-29", 2, true},
		{"2020-03-01", 3, true},
		{"2021-01-01", 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d, err := domain.ParseDate(tt.date)
			require.NoError(t, err)
			got, ok := levelAt(series, d)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldRebalance(t *testing.T) {
	drifted := rebalanceState{elapsedMonths: 5, weights: []float64{0.56, 0.44}, targets: []float64{0.5, 0.5}}

	assert.True(t, StrategyTolerance5.shouldRebalance(drifted))
	assert.False(t, StrategyTolerance10.shouldRebalance(drifted))
	assert.False(t, StrategyQuarterly.shouldRebalance(drifted))
	assert.True(t, StrategyMonthly.shouldRebalance(drifted))
	assert.False(t, StrategyNone.shouldRebalance(drifted))

	assert.True(t, StrategyEvery3Years.firesOnCalendar(36))
	assert.False(t, StrategyEvery3Years.firesOnCalendar(24))
	assert.False(t, StrategyTolerance5.firesOnCalendar(12))

	exactBand := rebalanceState{elapsedMonths: 1, weights: []float64{0.55, 0.45}, targets: []float64{0.5, 0.5}}
	assert.False(t, StrategyTolerance5.shouldRebalance(exactBand))
}
