package backtest

import "math"

// rebalanceState is what a policy sees at the end of a simulated month
type rebalanceState struct {
	elapsedMonths int       // months since the start date, >= 1
	weights       []float64 // current weights of the active assets
	targets       []float64 // target weights of the active assets, summing to 1
}

type rebalanceRule func(rebalanceState) bool

// rebalanceRules holds one rule per policy, indexed by the Strategy value
var rebalanceRules = [...]rebalanceRule{
	StrategyNone:        rebalanceNever,
	StrategyMonthly:     rebalanceMonthly,
	StrategyQuarterly:   rebalanceQuarterly,
	StrategyHalfYearly:  rebalanceHalfYearly,
	StrategyYearly:      rebalanceYearly,
	StrategyEvery2Years: rebalanceEvery2Years,
	StrategyEvery3Years: rebalanceEvery3Years,
	StrategyTolerance5:  rebalanceTolerance5,
	StrategyTolerance10: rebalanceTolerance10,
	StrategyTolerance15: rebalanceTolerance15,
	StrategyTolerance20: rebalanceTolerance20,
}

func rebalanceNever(rebalanceState) bool { return false }

func rebalanceMonthly(s rebalanceState) bool     { return everyMonths(s, 1) }
func rebalanceQuarterly(s rebalanceState) bool   { return everyMonths(s, 3) }
func rebalanceHalfYearly(s rebalanceState) bool  { return everyMonths(s, 6) }
func rebalanceYearly(s rebalanceState) bool      { return everyMonths(s, 12) }
func rebalanceEvery2Years(s rebalanceState) bool { return everyMonths(s, 24) }
func rebalanceEvery3Years(s rebalanceState) bool { return everyMonths(s, 36) }

func rebalanceTolerance5(s rebalanceState) bool  { return outOfBand(s, 0.05) }
func rebalanceTolerance10(s rebalanceState) bool { return outOfBand(s, 0.10) }
func rebalanceTolerance15(s rebalanceState) bool { return outOfBand(s, 0.15) }
func rebalanceTolerance20(s rebalanceState) bool { return outOfBand(s, 0.20) }

func everyMonths(s rebalanceState, n int) bool {
	return s.elapsedMonths > 0 && s.elapsedMonths%n == 0
}

// outOfBand fires when any weight deviates from target by more than band percentage points
func outOfBand(s rebalanceState, band float64) bool {
	for i := range s.weights {
		if math.Abs(s.weights[i]-s.targets[i]) > band+1e-12 {
			return true
		}
	}
	return false
}

// shouldRebalance evaluates the policy for the given state
func (s Strategy) shouldRebalance(state rebalanceState) bool {
	if !s.Valid() {
		return false
	}
	return rebalanceRules[s](state)
}

// firesOnCalendar reports whether a calendar policy is scheduled at elapsed months.
// Tolerance policies depend on drift and are never known in advance.
func (s Strategy) firesOnCalendar(elapsedMonths int) bool {
	if s.IsTolerance() {
		return false
	}
	return s.shouldRebalance(rebalanceState{elapsedMonths: elapsedMonths})
}
