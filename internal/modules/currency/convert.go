package currency

import (
	"sort"
	"time"

	"github.com/aristath/backtester/internal/domain"
)

// RateForDate returns the rate of the closest date on or before t. When every
// rate is later than t the earliest one is used. rates must be ascending.
func RateForDate(rates []domain.ExchangeRatePoint, t time.Time) (domain.ExchangeRatePoint, bool) {
	if len(rates) == 0 {
		return domain.ExchangeRatePoint{}, false
	}
	ds := domain.FormatDate(t)
	idx := sort.Search(len(rates), func(i int) bool { return rates[i].Date > ds })
	if idx == 0 {
		return rates[0], true
	}
	return rates[idx-1], true
}

func rateForPoint(rates []domain.ExchangeRatePoint, date string) (domain.ExchangeRatePoint, bool) {
	t, err := domain.ParseDate(date)
	if err != nil {
		return domain.ExchangeRatePoint{}, false
	}
	return RateForDate(rates, t)
}

// FromEUR converts a EUR series into target point by point. Without rates,
// or for EUR, the values are returned unchanged.
func FromEUR(series []domain.TimeSeriesPoint, rates []domain.ExchangeRatePoint, target domain.Currency) []domain.TimeSeriesPoint {
	return convertSeries(series, rates, target, func(v, rate float64) float64 { return v * rate })
}

// ToEUR converts a series denominated in source back into EUR
func ToEUR(series []domain.TimeSeriesPoint, rates []domain.ExchangeRatePoint, source domain.Currency) []domain.TimeSeriesPoint {
	return convertSeries(series, rates, source, func(v, rate float64) float64 { return v / rate })
}

func convertSeries(series []domain.TimeSeriesPoint, rates []domain.ExchangeRatePoint, c domain.Currency, apply func(v, rate float64) float64) []domain.TimeSeriesPoint {
	out := make([]domain.TimeSeriesPoint, len(series))
	copy(out, series)
	if c == domain.CurrencyEUR || len(rates) == 0 {
		return out
	}
	for i, p := range out {
		rate, ok := rateForPoint(rates, p.Date)
		if !ok {
			continue
		}
		if r := rate.Rate(c); r > 0 {
			out[i].Value = apply(p.Value, r)
		}
	}
	return out
}

// AmountToEUR converts a single amount in source into EUR at rate
func AmountToEUR(amount float64, rate domain.ExchangeRatePoint, source domain.Currency) float64 {
	if r := rate.Rate(source); r > 0 {
		return amount / r
	}
	return amount
}

// AmountFromEUR converts a single EUR amount into target at rate
func AmountFromEUR(amount float64, rate domain.ExchangeRatePoint, target domain.Currency) float64 {
	if r := rate.Rate(target); r > 0 {
		return amount * r
	}
	return amount
}
