package importer

import (
	"strings"
	"testing"

	"github.com/aristath/backtester/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIndexCSV(t *testing.T) {
	input := `date,close
2020-01-03,101.5
2020-01-02,100
# holiday
2020-01-06,
2020-01-07,0
2020-01-03,102
`
	points, err := ParseIndexCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []domain.IndexDataPoint{
		{Date: "2020-01-02", Value: 100},
		{Date: "2020-01-03", Value: 102},
	}, points)
}

func TestParseIndexCSV_NoHeader(t *testing.T) {
	points, err := ParseIndexCSV(strings.NewReader("2020-01-31,10\n2020-02-29,11\n"))
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestParseIndexCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "bad close", input: "date,close\n2020-01-01,abc\n"},
		{name: "bad date", input: "date,close\n2020-01-01,1\n01/02/2020,2\n"},
		{name: "too few fields", input: "date,close\n2020-01-01\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIndexCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestResampleMonthEnd(t *testing.T) {
	points := []domain.IndexDataPoint{
		{Date: "2020-01-02", Value: 100},
		{Date: "2020-01-31", Value: 105},
		{Date: "2020-02-03", Value: 104},
		{Date: "2020-02-27", Value: 108},
		{Date: "2020-04-01", Value: 110},
	}

	assert.Equal(t, []domain.IndexDataPoint{
		{Date: "2020-01-31", Value: 105},
		{Date: "2020-02-29", Value: 108},
		{Date: "2020-04-30", Value: 110},
	}, ResampleMonthEnd(points))

	assert.Empty(t, ResampleMonthEnd(nil))
}

func TestParseRatesCSV(t *testing.T) {
	input := `date,eur_usd,eur_czk,usd_czk
2020-01-01,1.12,25.4,22.7
2020-01-02,1.10,25.3,
2020-01-03,,25.2,
2020-01-04,1.11,25.1
`
	rates, err := ParseRatesCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rates, 3)

	assert.Equal(t, 22.7, rates[0].USDCZK)
	assert.InDelta(t, 25.3/1.10, rates[1].USDCZK, 1e-12)
	assert.Equal(t, "2020-01-04", rates[2].Date)
	assert.InDelta(t, 25.1/1.11, rates[2].USDCZK, 1e-12)
}

func TestParseRatesCSV_BadValue(t *testing.T) {
	_, err := ParseRatesCSV(strings.NewReader("2020-01-01,x,25\n"))
	assert.Error(t, err)
}

func TestParseMappingCSV(t *testing.T) {
	input := `index_name,index_code
MSCI World,msci_world
"S&P 500, Total Return",sp500
`
	mappings, err := ParseMappingCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []Mapping{
		{IndexName: "MSCI World", IndexCode: "msci_world"},
		{IndexName: "S&P 500, Total Return", IndexCode: "sp500"},
	}, mappings)

	_, err = ParseMappingCSV(strings.NewReader("MSCI World,\n"))
	assert.Error(t, err)
}
