// Package backtest reconstructs portfolio evolution from historical index
// data and derives return, risk, horizon and forecast statistics from it.
package backtest

import (
	"time"

	"github.com/aristath/backtester/internal/domain"
)

// PortfolioItem is one fund position mapped to an index series
type PortfolioItem struct {
	ISIN      string  `json:"isin" msgpack:"isin"`
	Name      string  `json:"name" msgpack:"name"`
	Weight    float64 `json:"weight" msgpack:"weight"` // Target weight, 0-1
	TER       float64 `json:"ter" msgpack:"ter"`       // Annual expense ratio, e.g. 0.002 for 0.2%
	IndexCode string  `json:"indexCode" msgpack:"index_code"`
}

// ContributionPlan is a recurring investment
type ContributionPlan struct {
	Amount    float64   `json:"amount" msgpack:"amount"`
	Frequency Frequency `json:"frequency" msgpack:"frequency"`
}

// Input describes one backtest run. Amounts are in EUR.
type Input struct {
	Portfolio     []PortfolioItem   `json:"portfolio" msgpack:"portfolio"`
	StartDate     time.Time         `json:"startDate" msgpack:"start_date"`
	EndDate       time.Time         `json:"endDate" msgpack:"end_date"`
	InitialAmount float64           `json:"initialAmount" msgpack:"initial_amount"`
	Rebalancing   Strategy          `json:"rebalancingStrategy" msgpack:"rebalancing"`
	Contributions *ContributionPlan `json:"contributions,omitempty" msgpack:"contributions"`
	InflationRate *float64          `json:"inflationRate,omitempty" msgpack:"inflation_rate"` // Annual, optional
}

// Summary holds the headline figures of a run
type Summary struct {
	AmountInvested    float64 `json:"amountInvested" msgpack:"amount_invested"`
	NetAssetValue     float64 `json:"netAssetValue" msgpack:"net_asset_value"`
	CAGR              float64 `json:"cagr" msgpack:"cagr"`
	StandardDeviation float64 `json:"standardDeviation" msgpack:"standard_deviation"` // Annualized
	SharpeRatio       float64 `json:"sharpeRatio" msgpack:"sharpe_ratio"`
}

// MonthlyReturn is the change between two consecutive evolution points
type MonthlyReturn struct {
	Date   string  `json:"date" msgpack:"date"`
	Year   int     `json:"year" msgpack:"year"`
	Month  int     `json:"month" msgpack:"month"`
	Return float64 `json:"return" msgpack:"return"`
}

// AnnualReturn is the compounded monthly return within one calendar year
type AnnualReturn struct {
	Year   int     `json:"year" msgpack:"year"`
	Return float64 `json:"return" msgpack:"return"`
}

// Returns is the returns analysis of an evolution series
type Returns struct {
	AnnualReturns  []AnnualReturn  `json:"annualReturns" msgpack:"annual_returns"`
	MonthlyReturns []MonthlyReturn `json:"monthlyReturns" msgpack:"monthly_returns"`
	BestYears      []AnnualReturn  `json:"bestYears" msgpack:"best_years"`
	WorstYears     []AnnualReturn  `json:"worstYears" msgpack:"worst_years"`
	BestMonths     []MonthlyReturn `json:"bestMonths" msgpack:"best_months"`
	WorstMonths    []MonthlyReturn `json:"worstMonths" msgpack:"worst_months"`
	PositiveYears  int             `json:"positiveYears" msgpack:"positive_years"`
	TotalYears     int             `json:"totalYears" msgpack:"total_years"`
	PositiveMonths int             `json:"positiveMonths" msgpack:"positive_months"`
	TotalMonths    int             `json:"totalMonths" msgpack:"total_months"`
}

// DrawdownPeriod is one peak-to-recovery decline. EndDate is nil while unrecovered.
type DrawdownPeriod struct {
	StartDate    string  `json:"startDate" msgpack:"start_date"`
	TroughDate   string  `json:"troughDate" msgpack:"trough_date"`
	EndDate      *string `json:"endDate" msgpack:"end_date"`
	Depth        float64 `json:"depth" msgpack:"depth"` // <= 0, fraction of the peak
	LengthMonths int     `json:"lengthMonths" msgpack:"length_months"`
	Recovered    bool    `json:"recovered" msgpack:"recovered"`
}

// Risk is the risk analysis of an evolution series.
// The drawdown pointers are nil when the series never declined.
type Risk struct {
	MaxDrawdown     *DrawdownPeriod  `json:"maxDrawdown" msgpack:"max_drawdown"`
	LongestDrawdown *DrawdownPeriod  `json:"longestDrawdown" msgpack:"longest_drawdown"`
	DeepestDrawdown *DrawdownPeriod  `json:"deepestDrawdown" msgpack:"deepest_drawdown"`
	ValueAtRisk95   float64          `json:"valueAtRisk95" msgpack:"value_at_risk_95"`
	AllDrawdowns    []DrawdownPeriod `json:"allDrawdowns" msgpack:"all_drawdowns"`
}

// HorizonAnalysis is the probability of gain for one holding period
type HorizonAnalysis struct {
	Years                     int     `json:"years" msgpack:"years"`
	PeriodsWithPositiveReturn int     `json:"periodsWithPositiveReturn" msgpack:"periods_with_positive_return"`
	TotalPeriods              int     `json:"totalPeriods" msgpack:"total_periods"`
	PercentagePositive        float64 `json:"percentagePositive" msgpack:"percentage_positive"`
}

// MonteCarloResult is the trajectory of one percentile band
type MonteCarloResult struct {
	Percentile float64                  `json:"percentile" msgpack:"percentile"`
	Label      string                   `json:"label" msgpack:"label"`
	Evolution  []domain.TimeSeriesPoint `json:"evolution" msgpack:"evolution"`
	FinalValue float64                  `json:"finalValue" msgpack:"final_value"`
}

// Inflation compares nominal and inflation-adjusted performance
type Inflation struct {
	NominalCAGR      float64                  `json:"nominalCAGR" msgpack:"nominal_cagr"`
	RealCAGR         float64                  `json:"realCAGR" msgpack:"real_cagr"`
	InflationRate    float64                  `json:"inflationRate" msgpack:"inflation_rate"`
	NominalEvolution []domain.TimeSeriesPoint `json:"nominalEvolution" msgpack:"nominal_evolution"`
	RealEvolution    []domain.TimeSeriesPoint `json:"realEvolution" msgpack:"real_evolution"`
}

// RebalancingComparison is the outcome of one policy against the best policy
type RebalancingComparison struct {
	Strategy          Strategy `json:"strategy" msgpack:"strategy"`
	StrategyLabel     string   `json:"strategyLabel" msgpack:"strategy_label"`
	CAGR              float64  `json:"cagr" msgpack:"cagr"`
	DifferenceFromMax float64  `json:"differenceFromMax" msgpack:"difference_from_max"`
}

// Result is the full output of a backtest
type Result struct {
	RunID            string                   `json:"runId" msgpack:"run_id"`
	Evolution        []domain.TimeSeriesPoint `json:"evolution" msgpack:"evolution"`
	Summary          Summary                  `json:"summary" msgpack:"summary"`
	Returns          Returns                  `json:"returns" msgpack:"returns"`
	Risk             Risk                     `json:"risk" msgpack:"risk"`
	Horizons         []HorizonAnalysis        `json:"horizons" msgpack:"horizons"`
	Inflation        *Inflation               `json:"inflation,omitempty" msgpack:"inflation"`
	MonteCarlo       []MonteCarloResult       `json:"monteCarlo,omitempty" msgpack:"monte_carlo"`
	Rebalances       int                      `json:"rebalances" msgpack:"rebalances"`
	Warnings         []string                 `json:"warnings,omitempty" msgpack:"warnings"`
	InsufficientData bool                     `json:"insufficientData" msgpack:"insufficient_data"`
}
