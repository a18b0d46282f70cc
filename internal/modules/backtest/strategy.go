package backtest

import (
	"encoding/json"
	"fmt"
)

// Strategy is a rebalancing policy. The zero value is StrategyNone.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyMonthly
	StrategyQuarterly
	StrategyHalfYearly
	StrategyYearly
	StrategyEvery2Years
	StrategyEvery3Years
	StrategyTolerance5
	StrategyTolerance10
	StrategyTolerance15
	StrategyTolerance20
)

// DefaultStrategy is used when a request does not name one
const DefaultStrategy = StrategyYearly

var strategyNames = [...]string{
	StrategyNone:        "none",
	StrategyMonthly:     "monthly",
	StrategyQuarterly:   "quarterly",
	StrategyHalfYearly:  "half-yearly",
	StrategyYearly:      "yearly",
	StrategyEvery2Years: "every-2-years",
	StrategyEvery3Years: "every-3-years",
	StrategyTolerance5:  "tolerance-5",
	StrategyTolerance10: "tolerance-10",
	StrategyTolerance15: "tolerance-15",
	StrategyTolerance20: "tolerance-20",
}

var strategyLabels = [...]string{
	StrategyNone:        "No rebalancing",
	StrategyMonthly:     "Monthly",
	StrategyQuarterly:   "Quarterly",
	StrategyHalfYearly:  "Half-yearly",
	StrategyYearly:      "Yearly",
	StrategyEvery2Years: "Every 2 years",
	StrategyEvery3Years: "Every 3 years",
	StrategyTolerance5:  "Tolerance band 5%",
	StrategyTolerance10: "Tolerance band 10%",
	StrategyTolerance15: "Tolerance band 15%",
	StrategyTolerance20: "Tolerance band 20%",
}

// AllStrategies lists every policy in declaration order
func AllStrategies() []Strategy {
	out := make([]Strategy, 0, len(strategyNames))
	for s := range strategyNames {
		out = append(out, Strategy(s))
	}
	return out
}

// ParseStrategy resolves a policy name. Empty input yields DefaultStrategy.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return DefaultStrategy, nil
	}
	for i, name := range strategyNames {
		if name == s {
			return Strategy(i), nil
		}
	}
	return 0, &ValidationError{Field: "rebalancingStrategy", Err: fmt.Errorf("%w: %q", ErrUnknownStrategy, s)}
}

// Valid reports whether s is a declared policy
func (s Strategy) Valid() bool {
	return s >= 0 && int(s) < len(strategyNames)
}

func (s Strategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// Label returns a human-readable policy name
func (s Strategy) Label() string {
	if !s.Valid() {
		return s.String()
	}
	return strategyLabels[s]
}

// IsTolerance reports whether the policy fires on weight drift rather than the calendar
func (s Strategy) IsTolerance() bool {
	return s >= StrategyTolerance5 && s <= StrategyTolerance20
}

// MarshalJSON encodes the policy by name
func (s Strategy) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a policy name
func (s *Strategy) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseStrategy(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Frequency is how often a recurring contribution is made
type Frequency int

const (
	FrequencyMonthly Frequency = iota + 1
	FrequencyQuarterly
	FrequencyYearly
)

var frequencyNames = map[Frequency]string{
	FrequencyMonthly:   "monthly",
	FrequencyQuarterly: "quarterly",
	FrequencyYearly:    "yearly",
}

// ParseFrequency resolves a contribution frequency name
func ParseFrequency(s string) (Frequency, error) {
	for f, name := range frequencyNames {
		if name == s {
			return f, nil
		}
	}
	return 0, &ValidationError{Field: "contributions.frequency", Err: fmt.Errorf("%w: %q", ErrUnknownFrequency, s)}
}

// Months returns the number of months between contributions
func (f Frequency) Months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyYearly:
		return 12
	default:
		return 0
	}
}

// Valid reports whether f is a declared frequency
func (f Frequency) Valid() bool {
	return f.Months() > 0
}

func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

// MarshalJSON encodes the frequency by name
func (f Frequency) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON decodes a frequency name
func (f *Frequency) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseFrequency(name)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
