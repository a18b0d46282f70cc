package correlation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aristath/backtester/internal/domain"
	testingpkg "github.com/aristath/backtester/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func toSeries(d domain.IndexData, name string) Series {
	return Series{Code: d.IndexCode, Name: name, Points: d.Points}
}

func TestMonthlyReturns_ResamplesToMonthEnd(t *testing.T) {
	points := []domain.IndexDataPoint{
		{Date: "2020-01-02", Value: 90},
		{Date: "2020-01-31", Value: 100},
		{Date: "2020-02-14", Value: 130},
		{Date: "2020-02-28", Value: 110},
		{Date: "2020-03-31", Value: 99},
	}

	returns := monthlyReturns(points)

	require.Len(t, returns, 2)
	assert.InDelta(t, 0.1, returns["2020-02"], 1e-12)
	assert.InDelta(t, -0.1, returns["2020-03"], 1e-12)
}

func TestCalculate_Properties(t *testing.T) {
	a := testingpkg.AlternatingSeries("A", start, 100, 0.05, 24)
	b := testingpkg.GrowthSeries("B", start, 100, 0.01, 24)
	b.Points[5].Value *= 1.03
	b.Points[11].Value *= 0.97
	c := testingpkg.AlternatingSeries("C", start, 100, 0.02, 24)

	res, err := Calculate(context.Background(), []Series{toSeries(a, "World"), toSeries(b, "Bonds"), toSeries(c, "Gold")})
	require.NoError(t, err)

	assert.Equal(t, []string{"World", "Bonds", "Gold"}, res.Names)
	require.Len(t, res.Correlations, 3)
	assert.Equal(t, "World", res.Correlations[0].Asset1)
	assert.Equal(t, "Bonds", res.Correlations[0].Asset2)
	assert.Equal(t, 24, res.Correlations[0].Months)

	require.Len(t, res.Matrix, 3)
	for i := range res.Matrix {
		assert.Equal(t, 1.0, res.Matrix[i][i])
		for j := range res.Matrix {
			assert.Equal(t, res.Matrix[i][j], res.Matrix[j][i])
			assert.LessOrEqual(t, math.Abs(res.Matrix[i][j]), 1.0)
		}
	}

	// same phase alternation, different amplitude
	assert.InDelta(t, 1.0, res.Matrix[0][2], 1e-9)
}

func TestCalculate_SelfAndSymmetry(t *testing.T) {
	a := testingpkg.AlternatingSeries("A", start, 100, 0.05, 12)
	a.Points[3].Value *= 1.1
	b := testingpkg.GrowthSeries("B", start, 100, 0.01, 12)
	b.Points[7].Value *= 0.9

	self, err := Calculate(context.Background(), []Series{toSeries(a, "A"), toSeries(a, "A2")})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, self.Correlations[0].Correlation, 1e-12)

	ab, err := Calculate(context.Background(), []Series{toSeries(a, "A"), toSeries(b, "B")})
	require.NoError(t, err)
	ba, err := Calculate(context.Background(), []Series{toSeries(b, "B"), toSeries(a, "A")})
	require.NoError(t, err)
	assert.Equal(t, ab.Correlations[0].Correlation, ba.Correlations[0].Correlation)
}

func TestCalculate_AlignsOnSharedMonths(t *testing.T) {
	a := testingpkg.AlternatingSeries("A", start, 100, 0.05, 12)
	late := testingpkg.AlternatingSeries("B", domain.AddMonths(start, 5), 100, 0.05, 6)

	res, err := Calculate(context.Background(), []Series{toSeries(a, "A"), toSeries(late, "B")})
	require.NoError(t, err)

	require.Len(t, res.Correlations, 1)
	assert.Equal(t, 6, res.Correlations[0].Months)
	// B's first return month is A's down month, so the phases are opposite
	assert.InDelta(t, -1.0, res.Correlations[0].Correlation, 1e-9)
}

func TestCalculate_Degenerate(t *testing.T) {
	flat := testingpkg.GrowthSeries("F", start, 100, 0, 12)
	a := testingpkg.AlternatingSeries("A", start, 100, 0.05, 12)
	empty := Series{Code: "E", Name: "Empty"}

	res, err := Calculate(context.Background(), []Series{toSeries(flat, "Flat"), empty, toSeries(a, "A")})
	require.NoError(t, err)

	assert.Equal(t, []string{"Flat", "A"}, res.Names)
	require.Len(t, res.Correlations, 1)
	assert.Equal(t, 0.0, res.Correlations[0].Correlation)

	one, err := Calculate(context.Background(), []Series{toSeries(a, "A")})
	require.NoError(t, err)
	assert.Empty(t, one.Correlations)
	assert.Equal(t, [][]float64{{1}}, one.Matrix)
}

func TestService_Correlate(t *testing.T) {
	loader := testingpkg.NewFakeLoader(
		testingpkg.AlternatingSeries("A", start, 100, 0.05, 12),
		testingpkg.AlternatingSeries("B", start, 100, 0.03, 12),
	)
	svc := NewService(loader, zerolog.New(nil).Level(zerolog.Disabled))

	assets := []Asset{
		{Name: "World", IndexCode: "A"},
		{Name: "World again", IndexCode: "A"},
		{Name: "Europe", IndexCode: "B"},
		{Name: "Missing", IndexCode: "NONE"},
	}
	res, err := svc.Correlate(context.Background(), assets, start, domain.AddMonths(start, 12))
	require.NoError(t, err)

	assert.Equal(t, []string{"World", "World again", "Europe"}, res.Names)
	assert.Len(t, res.Correlations, 3)
	assert.Equal(t, 1, loader.Calls("A"))
}

func TestService_Correlate_TooFewAssets(t *testing.T) {
	loader := testingpkg.NewFakeLoader()
	svc := NewService(loader, zerolog.New(nil).Level(zerolog.Disabled))

	res, err := svc.Correlate(context.Background(), []Asset{{Name: "Solo", IndexCode: "A"}}, start, start)
	require.NoError(t, err)
	assert.Empty(t, res.Correlations)
	assert.NotNil(t, res.Names)
	assert.Equal(t, 0, loader.Calls("A"))
}

func TestService_Correlate_LoadError(t *testing.T) {
	loader := testingpkg.NewFakeLoader()
	loader.SetError("A", errors.New("timeout"))
	svc := NewService(loader, zerolog.New(nil).Level(zerolog.Disabled))

	_, err := svc.Correlate(context.Background(), []Asset{{IndexCode: "A"}, {IndexCode: "B"}}, start, start)
	assert.Error(t, err)
}
