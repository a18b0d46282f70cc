package testing

import (
	"time"

	"github.com/aristath/backtester/internal/domain"
)

// MonthlySeries builds a month-start index series beginning at start, one point per level
func MonthlySeries(code string, start time.Time, levels ...float64) domain.IndexData {
	points := make([]domain.IndexDataPoint, len(levels))
	for i, v := range levels {
		points[i] = domain.IndexDataPoint{Date: domain.FormatDate(domain.AddMonths(start, i)), Value: v}
	}
	return domain.IndexData{IndexCode: code, Points: points}
}

// AlternatingSeries builds a monthly series starting at base that moves by +step, -step, +step, ...
func AlternatingSeries(code string, start time.Time, base, step float64, months int) domain.IndexData {
	levels := make([]float64, months+1)
	levels[0] = base
	for i := 1; i <= months; i++ {
		r := step
		if i%2 == 0 {
			r = -step
		}
		levels[i] = levels[i-1] * (1 + r)
	}
	return MonthlySeries(code, start, levels...)
}

// GrowthSeries builds a monthly series compounding at a constant monthly rate
func GrowthSeries(code string, start time.Time, base, monthlyRate float64, months int) domain.IndexData {
	levels := make([]float64, months+1)
	levels[0] = base
	for i := 1; i <= months; i++ {
		levels[i] = levels[i-1] * (1 + monthlyRate)
	}
	return MonthlySeries(code, start, levels...)
}
