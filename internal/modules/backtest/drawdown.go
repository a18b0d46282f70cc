package backtest

import "github.com/aristath/backtester/internal/domain"

// DetectDrawdowns scans the series once, tracking the running peak. A period
// opens on the first dip below the peak and closes when the value regains it.
// An open period at the end has no EndDate and its length runs to the last point.
func DetectDrawdowns(evolution []domain.TimeSeriesPoint) []DrawdownPeriod {
	periods := make([]DrawdownPeriod, 0)
	if len(evolution) < 2 {
		return periods
	}

	peak := evolution[0].Value
	peakDate := evolution[0].Date
	var current *DrawdownPeriod

	for _, p := range evolution[1:] {
		if p.Value >= peak {
			if current != nil {
				end := p.Date
				current.EndDate = &end
				current.Recovered = true
				current.LengthMonths = monthsBetweenDates(current.StartDate, end)
				periods = append(periods, *current)
				current = nil
			}
			peak, peakDate = p.Value, p.Date
			continue
		}

		depth := (p.Value - peak) / peak
		if current == nil {
			current = &DrawdownPeriod{StartDate: peakDate, TroughDate: p.Date, Depth: depth}
		} else if depth < current.Depth {
			current.TroughDate, current.Depth = p.Date, depth
		}
	}

	if current != nil {
		current.LengthMonths = monthsBetweenDates(current.StartDate, evolution[len(evolution)-1].Date)
		periods = append(periods, *current)
	}

	return periods
}

// DeepestDrawdown returns the period with the most negative depth, the earliest on ties
func DeepestDrawdown(periods []DrawdownPeriod) *DrawdownPeriod {
	var best *DrawdownPeriod
	for i := range periods {
		if best == nil || periods[i].Depth < best.Depth {
			best = &periods[i]
		}
	}
	return best
}

// LongestDrawdown returns the period with the most months, the earliest on ties
func LongestDrawdown(periods []DrawdownPeriod) *DrawdownPeriod {
	var best *DrawdownPeriod
	for i := range periods {
		if best == nil || periods[i].LengthMonths > best.LengthMonths {
			best = &periods[i]
		}
	}
	return best
}

func monthsBetweenDates(start, end string) int {
	s, err := domain.ParseDate(start)
	if err != nil {
		return 0
	}
	e, err := domain.ParseDate(end)
	if err != nil {
		return 0
	}
	return domain.MonthsBetween(s, e)
}
