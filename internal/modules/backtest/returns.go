package backtest

import (
	"sort"

	"github.com/aristath/backtester/internal/domain"
	"github.com/aristath/backtester/pkg/formulas"
)

// TopN is the size of the best/worst lists
const TopN = 3

// MonthlyReturns computes the simple change between consecutive evolution points.
// Steps from a non-positive value are skipped. Contributions paid in during a
// month are part of that month's change.
func MonthlyReturns(evolution []domain.TimeSeriesPoint) []MonthlyReturn {
	returns := make([]MonthlyReturn, 0, len(evolution))
	for i := 1; i < len(evolution); i++ {
		prev, curr := evolution[i-1].Value, evolution[i].Value
		if prev <= 0 {
			continue
		}
		mr := MonthlyReturn{Date: evolution[i].Date, Return: formulas.TotalReturn(prev, curr)}
		if t, err := domain.ParseDate(evolution[i].Date); err == nil {
			mr.Year, mr.Month = t.Year(), int(t.Month())
		}
		returns = append(returns, mr)
	}
	return returns
}

// AnnualReturns compounds monthly returns per calendar year, ascending by year
func AnnualReturns(monthly []MonthlyReturn) []AnnualReturn {
	byYear := make(map[int]float64)
	var years []int
	for _, mr := range monthly {
		growth, seen := byYear[mr.Year]
		if !seen {
			growth = 1
			years = append(years, mr.Year)
		}
		byYear[mr.Year] = growth * (1 + mr.Return)
	}

	sort.Ints(years)
	out := make([]AnnualReturn, len(years))
	for i, y := range years {
		out[i] = AnnualReturn{Year: y, Return: byYear[y] - 1}
	}
	return out
}

// BestN returns the n highest returns. Ties keep the chronologically earlier item
// first, given items in chronological order.
func BestN[T any](items []T, n int, ret func(T) float64) []T {
	return topN(items, n, func(a, b T) bool { return ret(a) > ret(b) })
}

// WorstN returns the n lowest returns with the same tie rule as BestN
func WorstN[T any](items []T, n int, ret func(T) float64) []T {
	return topN(items, n, func(a, b T) bool { return ret(a) < ret(b) })
}

func topN[T any](items []T, n int, less func(a, b T) bool) []T {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

func monthlyReturn(r MonthlyReturn) float64 { return r.Return }
func annualReturn(r AnnualReturn) float64   { return r.Return }

// AnalyzeReturns builds the returns tables and counts for an evolution series
func AnalyzeReturns(evolution []domain.TimeSeriesPoint) Returns {
	monthly := MonthlyReturns(evolution)
	annual := AnnualReturns(monthly)

	r := Returns{
		AnnualReturns:  annual,
		MonthlyReturns: monthly,
		BestYears:      BestN(annual, TopN, annualReturn),
		WorstYears:     WorstN(annual, TopN, annualReturn),
		BestMonths:     BestN(monthly, TopN, monthlyReturn),
		WorstMonths:    WorstN(monthly, TopN, monthlyReturn),
		TotalMonths:    len(monthly),
		TotalYears:     len(annual),
	}
	for _, m := range monthly {
		if m.Return > 0 {
			r.PositiveMonths++
		}
	}
	for _, y := range annual {
		if y.Return > 0 {
			r.PositiveYears++
		}
	}
	return r
}

func returnValues(monthly []MonthlyReturn) []float64 {
	values := make([]float64, len(monthly))
	for i, m := range monthly {
		values[i] = m.Return
	}
	return values
}

// MonthlyMoments returns the mean and population standard deviation of the monthly returns
func MonthlyMoments(evolution []domain.TimeSeriesPoint) (mean, stdDev float64) {
	values := returnValues(MonthlyReturns(evolution))
	return formulas.Mean(values), formulas.PopStdDev(values)
}

// Summarize derives the headline figures. CAGR is measured against the amount
// invested over the exact elapsed time of the series.
func Summarize(evolution []domain.TimeSeriesPoint, amountInvested, riskFreeRate float64) Summary {
	s := Summary{AmountInvested: amountInvested, NetAssetValue: amountInvested}
	if len(evolution) == 0 {
		return s
	}
	s.NetAssetValue = evolution[len(evolution)-1].Value
	if len(evolution) < 2 {
		return s
	}

	years := domain.YearsBetweenDates(evolution[0].Date, evolution[len(evolution)-1].Date)
	mean, stdDev := MonthlyMoments(evolution)
	annualStd := formulas.AnnualizeMonthlyStdDev(stdDev)

	s.CAGR = formulas.CAGR(amountInvested, s.NetAssetValue, years)
	s.StandardDeviation = annualStd
	s.SharpeRatio = formulas.SharpeRatio(formulas.AnnualizeMonthlyMean(mean), annualStd, riskFreeRate)
	return s
}

// AnalyzeRisk detects drawdowns and computes the parametric 95% VaR
// on the annualized monthly return distribution.
func AnalyzeRisk(evolution []domain.TimeSeriesPoint) Risk {
	mean, stdDev := MonthlyMoments(evolution)
	drawdowns := DetectDrawdowns(evolution)

	r := Risk{
		AllDrawdowns:    drawdowns,
		DeepestDrawdown: DeepestDrawdown(drawdowns),
		LongestDrawdown: LongestDrawdown(drawdowns),
	}
	r.MaxDrawdown = r.DeepestDrawdown
	if len(evolution) > 1 {
		r.ValueAtRisk95 = formulas.ParametricVaR95(
			formulas.AnnualizeMonthlyMean(mean),
			formulas.AnnualizeMonthlyStdDev(stdDev),
		)
	}
	return r
}
