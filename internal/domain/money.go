package domain

import "github.com/shopspring/decimal"

// RoundMoney rounds a monetary amount to cents, half away from zero
func RoundMoney(v float64) float64 {
	return Round(v, 2)
}

// Round rounds v to the given number of decimal places using decimal arithmetic,
// so 2.675 becomes 2.68 rather than the binary-float 2.67.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
