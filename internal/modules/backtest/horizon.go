package backtest

import "github.com/aristath/backtester/internal/domain"

// DefaultMaxHorizonYears is the longest holding period analysed
const DefaultMaxHorizonYears = 10

// AnalyzeHorizons slides a window of 1..maxYears years across every start month
// of the evolution series and counts windows that ended strictly above their start.
// Windows starting from a non-positive value are not counted.
func AnalyzeHorizons(evolution []domain.TimeSeriesPoint, maxYears int) []HorizonAnalysis {
	if maxYears <= 0 {
		maxYears = DefaultMaxHorizonYears
	}

	results := make([]HorizonAnalysis, 0, maxYears)
	for years := 1; years <= maxYears; years++ {
		h := HorizonAnalysis{Years: years}
		months := years * 12

		for i := 0; i+months < len(evolution); i++ {
			start, end := evolution[i].Value, evolution[i+months].Value
			if start <= 0 {
				continue
			}
			h.TotalPeriods++
			if end > start {
				h.PeriodsWithPositiveReturn++
			}
		}
		if h.TotalPeriods > 0 {
			h.PercentagePositive = float64(h.PeriodsWithPositiveReturn) / float64(h.TotalPeriods)
		}
		results = append(results, h)
	}
	return results
}
