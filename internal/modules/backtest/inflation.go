package backtest

import (
	"math"

	"github.com/aristath/backtester/internal/domain"
	"github.com/aristath/backtester/pkg/formulas"
)

// AnalyzeInflation deflates the evolution by a constant annual inflation rate:
// real = nominal / (1+rate)^years elapsed since the first point.
func AnalyzeInflation(evolution []domain.TimeSeriesPoint, amountInvested, rate float64) *Inflation {
	inf := &Inflation{
		InflationRate:    rate,
		NominalEvolution: evolution,
		RealEvolution:    make([]domain.TimeSeriesPoint, len(evolution)),
	}
	if len(evolution) == 0 {
		return inf
	}

	first := evolution[0].Date
	for i, p := range evolution {
		years := domain.YearsBetweenDates(first, p.Date)
		inf.RealEvolution[i] = domain.TimeSeriesPoint{
			Date:  p.Date,
			Value: p.Value / math.Pow(1+rate, years),
		}
	}

	years := domain.YearsBetweenDates(first, evolution[len(evolution)-1].Date)
	inf.NominalCAGR = formulas.CAGR(amountInvested, evolution[len(evolution)-1].Value, years)
	inf.RealCAGR = formulas.CAGR(amountInvested, inf.RealEvolution[len(evolution)-1].Value, years)
	return inf
}
