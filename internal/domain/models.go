// Package domain provides core domain models and types.
package domain

import "fmt"

// Currency represents a currency code
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyCZK Currency = "CZK"
	CurrencyUSD Currency = "USD"
)

// ParseCurrency validates a currency code. Empty input defaults to EUR.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(s) {
	case "":
		return CurrencyEUR, nil
	case CurrencyEUR, CurrencyCZK, CurrencyUSD:
		return Currency(s), nil
	default:
		return "", fmt.Errorf("unsupported currency %q", s)
	}
}

// TimeSeriesPoint is one portfolio valuation.
// Dates are ISO calendar dates (YYYY-MM-DD), so they order lexicographically.
type TimeSeriesPoint struct {
	Date  string  `json:"date" msgpack:"date"`
	Value float64 `json:"value" msgpack:"value"`
}

// IndexDataPoint is one closing level of an index
type IndexDataPoint struct {
	Date  string  `json:"date" msgpack:"date"`
	Value float64 `json:"value" msgpack:"value"`
}

// IndexData is an ordered, deduplicated price series for a single index
type IndexData struct {
	IndexCode string           `json:"indexCode" msgpack:"index_code"`
	IndexName string           `json:"indexName,omitempty" msgpack:"index_name"`
	Points    []IndexDataPoint `json:"data" msgpack:"points"`
}

// Empty reports whether the series has no usable points
func (d IndexData) Empty() bool {
	return len(d.Points) == 0
}

// ExchangeRatePoint holds the EUR-based FX rates for one day
type ExchangeRatePoint struct {
	Date   string  `json:"date"`
	EURUSD float64 `json:"eurUsd"`
	EURCZK float64 `json:"eurCzk"`
	USDCZK float64 `json:"usdCzk"`
}

// Rate returns the EUR->target multiplier. EUR itself is 1.
func (p ExchangeRatePoint) Rate(target Currency) float64 {
	switch target {
	case CurrencyCZK:
		return p.EURCZK
	case CurrencyUSD:
		return p.EURUSD
	default:
		return 1
	}
}
