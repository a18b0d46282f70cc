package formulas

import "math"

// CAGR calculates Compound Annual Growth Rate
//
// Formula: CAGR = (final / initial)^(1/years) - 1
//
// years is the exact elapsed time (fractional). Returns 0 when initial or
// years is not positive. A final value of 0 is a total loss (-1).
func CAGR(initial, final, years float64) float64 {
	if initial <= 0 || years <= 0 {
		return 0
	}
	if final <= 0 {
		return -1
	}
	return finite(math.Pow(final/initial, 1/years) - 1)
}

// TotalReturn calculates (final - initial) / initial, or 0 for a non-positive base
func TotalReturn(initial, final float64) float64 {
	if initial <= 0 {
		return 0
	}
	return finite((final - initial) / initial)
}
