package currency

import (
	"testing"
	"time"

	"github.com/aristath/backtester/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRates = []domain.ExchangeRatePoint{
	{Date: "2020-01-02", EURUSD: 1.12, EURCZK: 25.4, USDCZK: 22.68},
	{Date: "2020-02-03", EURUSD: 1.10, EURCZK: 25.0, USDCZK: 22.73},
	{Date: "2020-03-02", EURUSD: 1.08, EURCZK: 27.0, USDCZK: 25.0},
}

func TestRateForDate(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2019-12-01", "2020-01-02"},
		{"2020-01-02", "2020-01-02"},
		{"2020-02-01", "2020-01-02"},
		{"2020-02-03", "2020-02-03"},
		{"2020-12-31", "2020-03-02"},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d, err := domain.ParseDate(tt.date)
			require.NoError(t, err)
			rate, ok := RateForDate(testRates, d)
			require.True(t, ok)
			assert.Equal(t, tt.want, rate.Date)
		})
	}

	_, ok := RateForDate(nil, time.Now())
	assert.False(t, ok)
}

func TestFromEUR(t *testing.T) {
	series := []domain.TimeSeriesPoint{
		{Date: "2020-01-15", Value: 100},
		{Date: "2020-03-15", Value: 200},
	}

	czk := FromEUR(series, testRates, domain.CurrencyCZK)
	assert.InDelta(t, 2540, czk[0].Value, 1e-9)
	assert.InDelta(t, 5400, czk[1].Value, 1e-9)
	assert.Equal(t, 100.0, series[0].Value, "input must not be modified")

	usd := FromEUR(series, testRates, domain.CurrencyUSD)
	assert.InDelta(t, 112, usd[0].Value, 1e-9)

	assert.Equal(t, series, FromEUR(series, testRates, domain.CurrencyEUR))
	assert.Equal(t, series, FromEUR(series, nil, domain.CurrencyCZK))
}

func TestRoundTrip(t *testing.T) {
	series := []domain.TimeSeriesPoint{
		{Date: "2020-01-01", Value: 1000},
		{Date: "2020-02-01", Value: 1013.37},
		{Date: "2020-03-01", Value: 987.65},
		{Date: "2020-04-01", Value: 1111.11},
	}

	for _, c := range []domain.Currency{domain.CurrencyCZK, domain.CurrencyUSD} {
		t.Run(string(c), func(t *testing.T) {
			back := ToEUR(FromEUR(series, testRates, c), testRates, c)
			require.Len(t, back, len(series))
			for i := range series {
				assert.Equal(t, series[i].Date, back[i].Date)
				assert.InDelta(t, series[i].Value, back[i].Value, 1e-9)
			}
		})
	}
}

func TestAmountConversion(t *testing.T) {
	rate := testRates[0]

	assert.InDelta(t, 100, AmountToEUR(2540, rate, domain.CurrencyCZK), 1e-9)
	assert.InDelta(t, 100, AmountToEUR(112, rate, domain.CurrencyUSD), 1e-9)
	assert.Equal(t, 100.0, AmountToEUR(100, rate, domain.CurrencyEUR))
	assert.InDelta(t, 2540, AmountFromEUR(100, rate, domain.CurrencyCZK), 1e-9)
	assert.Equal(t, 50.0, AmountToEUR(50, domain.ExchangeRatePoint{}, domain.CurrencyCZK))
}
