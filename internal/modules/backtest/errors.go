package backtest

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// WeightTolerance is the allowed deviation of the weight sum from 1
const WeightTolerance = 0.01

// Validation failures. All are returned wrapped in a *ValidationError.
var (
	ErrEmptyPortfolio   = errors.New("portfolio is empty")
	ErrInvalidWeights   = errors.New("portfolio weights must sum to 1")
	ErrInvalidWeight    = errors.New("weight must be in (0, 1]")
	ErrInvalidTER       = errors.New("expense ratio must be in [0, 1)")
	ErrMissingIndex     = errors.New("index code is required")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidAmount    = errors.New("amount must be a non-negative number")
	ErrNothingInvested  = errors.New("initial amount or a contribution is required")
	ErrUnknownStrategy  = errors.New("unknown rebalancing strategy")
	ErrUnknownFrequency = errors.New("unknown contribution frequency")
	ErrInvalidForecast  = errors.New("forecast must be positive")
)

// ValidationError reports a rejected input field
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is (or wraps) a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field string, err error, format string, args ...interface{}) error {
	if format == "" {
		return &ValidationError{Field: field, Err: err}
	}
	return &ValidationError{Field: field, Err: fmt.Errorf("%w: "+format, append([]interface{}{err}, args...)...)}
}

func badAmount(v float64) bool {
	return v < 0 || math.IsNaN(v) || math.IsInf(v, 0)
}

// Validate rejects inputs the simulation cannot run on
func (in Input) Validate() error {
	if len(in.Portfolio) == 0 {
		return invalid("portfolio", ErrEmptyPortfolio, "")
	}

	sum := 0.0
	for i, item := range in.Portfolio {
		field := fmt.Sprintf("portfolio[%d]", i)
		if strings.TrimSpace(item.IndexCode) == "" {
			return invalid(field+".indexCode", ErrMissingIndex, "")
		}
		if !(item.Weight > 0 && item.Weight <= 1) {
			return invalid(field+".weight", ErrInvalidWeight, "got %v", item.Weight)
		}
		if !(item.TER >= 0 && item.TER < 1) {
			return invalid(field+".ter", ErrInvalidTER, "got %v", item.TER)
		}
		sum += item.Weight
	}
	if math.Abs(sum-1) > WeightTolerance {
		return invalid("portfolio", ErrInvalidWeights, "got %.4f", sum)
	}

	if in.StartDate.IsZero() || in.EndDate.IsZero() || !in.StartDate.Before(in.EndDate) {
		return invalid("dateRange", ErrInvalidDateRange, "")
	}

	if badAmount(in.InitialAmount) {
		return invalid("initialAmount", ErrInvalidAmount, "got %v", in.InitialAmount)
	}

	contributing := false
	if c := in.Contributions; c != nil {
		if badAmount(c.Amount) {
			return invalid("contributions.amount", ErrInvalidAmount, "got %v", c.Amount)
		}
		if !c.Frequency.Valid() {
			return invalid("contributions.frequency", ErrUnknownFrequency, "")
		}
		contributing = c.Amount > 0
	}
	if in.InitialAmount == 0 && !contributing {
		return invalid("initialAmount", ErrNothingInvested, "")
	}

	if !in.Rebalancing.Valid() {
		return invalid("rebalancingStrategy", ErrUnknownStrategy, "%d", int(in.Rebalancing))
	}

	if in.InflationRate != nil && (*in.InflationRate <= -1 || math.IsNaN(*in.InflationRate)) {
		return invalid("inflationRate", ErrInvalidAmount, "got %v", *in.InflationRate)
	}

	return nil
}
