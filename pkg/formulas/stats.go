// Package formulas provides pure numeric formulas used by the analytics.
// Every function returns a finite sentinel (0) instead of NaN or Inf on degenerate input.
package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MonthsPerYear is the annualization factor for monthly series
const MonthsPerYear = 12

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return finite(stat.Mean(data, nil))
}

// PopStdDev calculates the population standard deviation (divides by N, not N-1)
func PopStdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return finite(math.Sqrt(stat.PopVariance(data, nil)))
}

// AnnualizeMonthlyStdDev scales a monthly standard deviation to annual: σ × √12
func AnnualizeMonthlyStdDev(monthly float64) float64 {
	return monthly * math.Sqrt(MonthsPerYear)
}

// AnnualizeMonthlyMean scales a monthly mean return to annual: μ × 12
func AnnualizeMonthlyMean(monthly float64) float64 {
	return monthly * MonthsPerYear
}

// CalculateReturns converts prices to simple returns
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]; a zero base yields a 0 return
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// Correlation calculates the Pearson correlation coefficient between two aligned datasets.
// Returns 0 for mismatched lengths, fewer than 2 points or a constant series.
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	if floats.Max(x) == floats.Min(x) || floats.Max(y) == floats.Min(y) {
		return 0
	}

	r := finite(stat.Correlation(x, y, nil))
	return math.Max(-1, math.Min(1, r))
}

// Percentile returns the empirical p-quantile (p in [0,1]) of data.
// The input is not modified.
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return PercentileSorted(sorted, p)
}

// PercentileSorted is Percentile for data already sorted ascending
func PercentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = math.Max(0, math.Min(1, p))
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
