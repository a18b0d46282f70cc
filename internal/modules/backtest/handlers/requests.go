package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/backtester/internal/domain"
	"github.com/aristath/backtester/internal/modules/backtest"
	"github.com/aristath/backtester/internal/modules/currency"
)

// DefaultInitialAmount is used when a request invests nothing at all
const DefaultInitialAmount = 10000

// ContributionRequest is a recurring investment in the request currency
type ContributionRequest struct {
	Amount    float64 `json:"amount"`
	Frequency string  `json:"frequency"`
}

// BacktestRequest is the common body of the backtest endpoints
type BacktestRequest struct {
	Portfolio           []backtest.PortfolioItem `json:"portfolio"`
	StartDate           string                   `json:"startDate"`
	EndDate             string                   `json:"endDate"`
	InitialAmount       float64                  `json:"initialAmount"`
	RebalancingStrategy string                   `json:"rebalancingStrategy"`
	Currency            string                   `json:"currency"`
	Contributions       *ContributionRequest     `json:"contributions,omitempty"`
	InflationRate       *float64                 `json:"inflationRate,omitempty"`
}

// SimulateRequest represents a request to run a backtest
type SimulateRequest struct {
	BacktestRequest
	IncludeMonteCarlo bool `json:"includeMonteCarlo"`
	ForecastYears     int  `json:"forecastYears"`
}

// MonteCarloRequest represents a request to forecast a portfolio
type MonteCarloRequest struct {
	BacktestRequest
	ForecastYears int `json:"forecastYears"`
	Simulations   int `json:"simulations"`
}

// fxContext carries the rates used to bring a request into EUR and its result back out
type fxContext struct {
	currency  domain.Currency
	rates     []domain.ExchangeRatePoint
	startRate domain.ExchangeRatePoint
	endRate   domain.ExchangeRatePoint
	hasRates  bool
}

func (fx fxContext) toEUR(amount float64) float64 {
	if !fx.hasRates {
		return amount
	}
	return currency.AmountToEUR(amount, fx.startRate, fx.currency)
}

func (fx fxContext) fromEUR(amount float64) float64 {
	if !fx.hasRates {
		return amount
	}
	return currency.AmountFromEUR(amount, fx.endRate, fx.currency)
}

func (fx fxContext) series(points []domain.TimeSeriesPoint) []domain.TimeSeriesPoint {
	out := currency.FromEUR(points, fx.rates, fx.currency)
	for i := range out {
		out[i].Value = domain.RoundMoney(out[i].Value)
	}
	return out
}

func parseDate(field, s string) (time.Time, error) {
	t, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, &backtest.ValidationError{Field: field, Err: fmt.Errorf("%w: %q", backtest.ErrInvalidDateRange, s)}
	}
	return t, nil
}

// toInput parses the request and converts its amounts to EUR at the start-date rate
func (h *Handler) toInput(ctx context.Context, req BacktestRequest) (backtest.Input, fxContext, error) {
	var in backtest.Input
	var fx fxContext

	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		return in, fx, err
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		return in, fx, err
	}

	strategy, err := backtest.ParseStrategy(req.RebalancingStrategy)
	if err != nil {
		return in, fx, err
	}

	cur, err := domain.ParseCurrency(req.Currency)
	if err != nil {
		return in, fx, &backtest.ValidationError{Field: "currency", Err: err}
	}
	fx.currency = cur

	if cur != domain.CurrencyEUR {
		rates, err := h.rates.LoadExchangeRates(ctx, start, end)
		if err != nil {
			return in, fx, fmt.Errorf("failed to load exchange rates: %w", err)
		}
		if len(rates) == 0 {
			h.log.Warn().Str("currency", string(cur)).Msg("No exchange rates in range; amounts left unconverted")
		} else {
			fx.rates = rates
			fx.startRate, _ = currency.RateForDate(rates, start)
			fx.endRate, _ = currency.RateForDate(rates, end)
			fx.hasRates = true
		}
	}

	in = backtest.Input{
		Portfolio:     req.Portfolio,
		StartDate:     start,
		EndDate:       end,
		InitialAmount: fx.toEUR(req.InitialAmount),
		Rebalancing:   strategy,
		InflationRate: req.InflationRate,
	}

	if c := req.Contributions; c != nil {
		freq, err := backtest.ParseFrequency(c.Frequency)
		if err != nil {
			return in, fx, err
		}
		in.Contributions = &backtest.ContributionPlan{Amount: fx.toEUR(c.Amount), Frequency: freq}
	}

	if in.InitialAmount == 0 && (in.Contributions == nil || in.Contributions.Amount == 0) {
		in.InitialAmount = fx.toEUR(DefaultInitialAmount)
	}

	return in, fx, nil
}
