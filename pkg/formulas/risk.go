package formulas

import "math"

// VaRZScore95 is the one-sided 95% normal quantile used by the parametric VaR
const VaRZScore95 = 1.65

// SharpeRatio calculates (annual return - risk free) / annual volatility.
// Returns 0 for zero volatility.
func SharpeRatio(annualReturn, annualVolatility, riskFreeRate float64) float64 {
	if annualVolatility <= 0 || math.IsNaN(annualVolatility) {
		return 0
	}
	return finite((annualReturn - riskFreeRate) / annualVolatility)
}

// ParametricVaR95 calculates the 95% parametric Value at Risk on the annual
// return distribution: μ - 1.65σ. The result is a return (negative = loss).
func ParametricVaR95(annualMean, annualStdDev float64) float64 {
	return finite(annualMean - VaRZScore95*annualStdDev)
}
