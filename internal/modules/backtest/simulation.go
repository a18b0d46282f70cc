package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aristath/backtester/internal/domain"
)

// levelGrace lets a series that starts a few days after a simulated date
// (weekend, holiday) still price that date.
const levelGrace = 7 * 24 * time.Hour

// SimulationOutput is the raw output of the stepping state machine
type SimulationOutput struct {
	Evolution        []domain.TimeSeriesPoint
	AmountInvested   float64
	Rebalances       int
	FinalValues      []float64 // per portfolio item
	FinalWeights     []float64 // per portfolio item, share of the final total
	Warnings         []string
	InsufficientData bool
}

type assetState struct {
	item      PortfolioItem
	series    []domain.IndexDataPoint
	active    bool    // has at least one price point
	target    float64 // normalized target weight
	value     float64
	prevLevel float64 // last seen index level, 0 until the series starts
}

// levelAt returns the last level on or before date, or the first level when
// it falls within the grace window after date.
func levelAt(series []domain.IndexDataPoint, date time.Time) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	ds := domain.FormatDate(date)
	idx := sort.Search(len(series), func(i int) bool { return series[i].Date > ds })
	if idx > 0 {
		return series[idx-1].Value, true
	}
	if series[0].Date <= domain.FormatDate(date.Add(levelGrace)) {
		return series[0].Value, true
	}
	return 0, false
}

// Simulate steps the portfolio one month at a time from StartDate to EndDate.
// series is keyed by index code; a missing or empty series freezes that asset
// at its initial allocation. The input must already be validated.
//
// Each month: inject a due contribution, apply index returns, apply the
// expense drag, evaluate the rebalancing policy, record the total.
func Simulate(in Input, series map[string]domain.IndexData) SimulationOutput {
	out := SimulationOutput{AmountInvested: in.InitialAmount}

	weightSum := 0.0
	for _, item := range in.Portfolio {
		weightSum += item.Weight
	}

	assets := make([]*assetState, len(in.Portfolio))
	for i, item := range in.Portfolio {
		data := series[item.IndexCode]
		a := &assetState{
			item:   item,
			series: data.Points,
			active: len(data.Points) > 0,
			target: item.Weight / weightSum,
		}
		a.value = in.InitialAmount * a.target
		if lvl, ok := levelAt(a.series, in.StartDate); ok {
			a.prevLevel = lvl
		}
		assets[i] = a
		out.Warnings = append(out.Warnings, coverageWarnings(a, in.StartDate, in.EndDate)...)
	}
	out.InsufficientData = len(out.Warnings) > 0

	pool := activePool(assets)
	poolTargets := normalizedTargets(pool)

	months := domain.MonthsBetween(in.StartDate, in.EndDate)
	out.Evolution = make([]domain.TimeSeriesPoint, 0, months+1)
	out.Evolution = append(out.Evolution, domain.TimeSeriesPoint{
		Date:  domain.FormatDate(in.StartDate),
		Value: in.InitialAmount,
	})

	for k := 1; k <= months; k++ {
		date := domain.AddMonths(in.StartDate, k)

		if c := in.Contributions; c != nil && c.Amount > 0 && k%c.Frequency.Months() == 0 {
			out.AmountInvested += c.Amount
			contribute(pool, poolTargets, c.Amount, in.Rebalancing.firesOnCalendar(k))
		}

		for _, a := range assets {
			if !a.active {
				continue
			}
			level, ok := levelAt(a.series, date)
			if !ok {
				continue
			}
			if a.prevLevel > 0 {
				a.value *= level / a.prevLevel
			}
			a.prevLevel = level
			a.value *= 1 - a.item.TER/12
			a.value = math.Max(0, a.value)
		}

		if rebalance(pool, poolTargets, in.Rebalancing, k) {
			out.Rebalances++
		}

		out.Evolution = append(out.Evolution, domain.TimeSeriesPoint{
			Date:  domain.FormatDate(date),
			Value: totalValue(assets),
		})
	}

	total := totalValue(assets)
	out.FinalValues = make([]float64, len(assets))
	out.FinalWeights = make([]float64, len(assets))
	for i, a := range assets {
		out.FinalValues[i] = a.value
		if total > 0 {
			out.FinalWeights[i] = a.value / total
		}
	}

	return out
}

// activePool returns the assets that take part in contributions and rebalancing:
// those with data, or every asset when none has data.
func activePool(assets []*assetState) []*assetState {
	pool := make([]*assetState, 0, len(assets))
	for _, a := range assets {
		if a.active {
			pool = append(pool, a)
		}
	}
	if len(pool) == 0 {
		return assets
	}
	return pool
}

func normalizedTargets(pool []*assetState) []float64 {
	sum := 0.0
	for _, a := range pool {
		sum += a.target
	}
	targets := make([]float64, len(pool))
	for i, a := range pool {
		if sum > 0 {
			targets[i] = a.target / sum
		}
	}
	return targets
}

func totalValue(assets []*assetState) float64 {
	total := 0.0
	for _, a := range assets {
		total += a.value
	}
	return total
}

func currentWeights(pool []*assetState) ([]float64, float64) {
	total := totalValue(pool)
	weights := make([]float64, len(pool))
	if total <= 0 {
		return weights, 0
	}
	for i, a := range pool {
		weights[i] = a.value / total
	}
	return weights, total
}

// contribute splits amount by current weights, or by target weights when a
// rebalance is scheduled this month or the pool is empty.
func contribute(pool []*assetState, targets []float64, amount float64, rebalanceDue bool) {
	split := targets
	if !rebalanceDue {
		if weights, total := currentWeights(pool); total > 0 {
			split = weights
		}
	}
	for i, a := range pool {
		a.value += amount * split[i]
	}
}

// rebalance resets every pool asset to its exact target weight when the policy fires
func rebalance(pool []*assetState, targets []float64, strategy Strategy, elapsed int) bool {
	weights, total := currentWeights(pool)
	if total <= 0 {
		return false
	}
	if !strategy.shouldRebalance(rebalanceState{elapsedMonths: elapsed, weights: weights, targets: targets}) {
		return false
	}
	for i, a := range pool {
		a.value = total * targets[i]
	}
	return true
}

func coverageWarnings(a *assetState, start, end time.Time) []string {
	label := a.item.IndexCode
	if a.item.Name != "" {
		label = fmt.Sprintf("%s (%s)", a.item.Name, a.item.IndexCode)
	}

	if !a.active {
		return []string{fmt.Sprintf("no index data for %s; value held flat", label)}
	}

	var warnings []string
	first, last := a.series[0].Date, a.series[len(a.series)-1].Date
	if _, ok := levelAt(a.series, start); !ok {
		warnings = append(warnings, fmt.Sprintf("index data for %s starts %s, after the start date; value held flat until then", label, first))
	}
	if last < domain.FormatDate(domain.AddMonths(end, -1)) {
		warnings = append(warnings, fmt.Sprintf("index data for %s ends %s, before the end date; value held flat after that", label, last))
	}
	return warnings
}
