// Package correlation computes pairwise Pearson correlations of monthly
// index returns, aligned on the months the series share.
package correlation

import (
	"context"
	"runtime"
	"sort"

	"github.com/aristath/backtester/internal/domain"
	"github.com/aristath/backtester/pkg/formulas"
	"golang.org/x/sync/errgroup"
)

// Series is one asset's price history
type Series struct {
	Code   string
	Name   string
	Points []domain.IndexDataPoint
}

// Pair is the correlation of two assets' monthly returns
type Pair struct {
	Asset1      string  `json:"etf1"`
	Asset2      string  `json:"etf2"`
	Correlation float64 `json:"correlation"`
	Months      int     `json:"months"` // shared return months
}

// Result holds the pair list and the symmetric matrix over the same assets
type Result struct {
	Correlations []Pair      `json:"correlations"`
	Names        []string    `json:"etfNames"`
	Matrix       [][]float64 `json:"matrix"`
}

// monthlyReturns resamples points to the last level of each calendar month
// and keys each month's simple return by "YYYY-MM".
func monthlyReturns(points []domain.IndexDataPoint) map[string]float64 {
	var months []string
	var levels []float64
	for _, p := range points {
		if len(p.Date) < 7 || p.Value <= 0 {
			continue
		}
		month := p.Date[:7]
		if n := len(months); n > 0 && months[n-1] == month {
			levels[n-1] = p.Value
			continue
		}
		months = append(months, month)
		levels = append(levels, p.Value)
	}

	returns := formulas.CalculateReturns(levels)
	out := make(map[string]float64, len(returns))
	for i, r := range returns {
		out[months[i+1]] = r
	}
	return out
}

// align returns the returns of both series over their shared months, in month order
func align(a, b map[string]float64) (x, y []float64) {
	shared := make([]string, 0, len(a))
	for month := range a {
		if _, ok := b[month]; ok {
			shared = append(shared, month)
		}
	}
	sort.Strings(shared)

	x = make([]float64, len(shared))
	y = make([]float64, len(shared))
	for i, month := range shared {
		x[i], y[i] = a[month], b[month]
	}
	return x, y
}

// Calculate correlates every pair of series that has points. Series without
// points are left out of the names, pairs and matrix.
func Calculate(ctx context.Context, series []Series) (Result, error) {
	var used []Series
	for _, s := range series {
		if len(s.Points) > 0 {
			used = append(used, s)
		}
	}

	res := Result{
		Correlations: make([]Pair, 0),
		Names:        make([]string, len(used)),
		Matrix:       make([][]float64, len(used)),
	}
	returns := make([]map[string]float64, len(used))
	for i, s := range used {
		res.Names[i] = s.Name
		if res.Names[i] == "" {
			res.Names[i] = s.Code
		}
		returns[i] = monthlyReturns(s.Points)
		res.Matrix[i] = make([]float64, len(used))
		res.Matrix[i][i] = 1
	}

	type pairIdx struct{ i, j int }
	var idx []pairIdx
	for i := range used {
		for j := i + 1; j < len(used); j++ {
			idx = append(idx, pairIdx{i, j})
		}
	}

	pairs := make([]Pair, len(idx))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k, p := range idx {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			x, y := align(returns[p.i], returns[p.j])
			pairs[k] = Pair{
				Asset1:      res.Names[p.i],
				Asset2:      res.Names[p.j],
				Correlation: formulas.Correlation(x, y),
				Months:      len(x),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	for k, p := range idx {
		res.Matrix[p.i][p.j] = pairs[k].Correlation
		res.Matrix[p.j][p.i] = pairs[k].Correlation
	}
	res.Correlations = append(res.Correlations, pairs...)
	return res, nil
}
