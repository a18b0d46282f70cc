// Package importer parses CSV exports of index levels, exchange rates and
// fund index mappings into the history store's record types.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aristath/backtester/internal/domain"
)

// Mapping is one fund index name resolved to an index code
type Mapping struct {
	IndexName string
	IndexCode string
}

// readRows returns the data rows of a CSV document. A first row whose first
// column is not a date (or, for mappings, equals "index_name") is a header.
func readRows(r io.Reader, minFields int, isHeader func([]string) bool) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var rows [][]string
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && isHeader(record) {
			continue
		}
		if len(record) < minFields {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, minFields, len(record))
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func dateHeader(record []string) bool {
	_, err := domain.ParseDate(strings.TrimSpace(record[0]))
	return err != nil
}

func parsePositive(field, value string) (float64, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s %q", field, value)
	}
	return v, v > 0, nil
}

// ParseIndexCSV reads "date,close" rows. Rows with an empty or non-positive
// close are dropped. The result is sorted by date with duplicates collapsed
// to the last occurrence.
func ParseIndexCSV(r io.Reader) ([]domain.IndexDataPoint, error) {
	rows, err := readRows(r, 2, dateHeader)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]float64, len(rows))
	for i, row := range rows {
		t, err := domain.ParseDate(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		v, ok, err := parsePositive("close", row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if !ok {
			continue
		}
		byDate[domain.FormatDate(t)] = v
	}

	points := make([]domain.IndexDataPoint, 0, len(byDate))
	for date, v := range byDate {
		points = append(points, domain.IndexDataPoint{Date: date, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

// ResampleMonthEnd keeps the last level of every calendar month, dated at
// the month's last day. Input must be sorted by date.
func ResampleMonthEnd(points []domain.IndexDataPoint) []domain.IndexDataPoint {
	var out []domain.IndexDataPoint
	for _, p := range points {
		t, err := domain.ParseDate(p.Date)
		if err != nil {
			continue
		}
		monthEnd := domain.FormatDate(domain.AddMonths(t.AddDate(0, 0, 1-t.Day()), 1).AddDate(0, 0, -1))
		if n := len(out); n > 0 && out[n-1].Date == monthEnd {
			out[n-1].Value = p.Value
			continue
		}
		out = append(out, domain.IndexDataPoint{Date: monthEnd, Value: p.Value})
	}
	return out
}

// ParseRatesCSV reads "date,eur_usd,eur_czk[,usd_czk]" rows. Rows missing
// either EUR rate are dropped. An empty USD/CZK is derived from the EUR rates.
func ParseRatesCSV(r io.Reader) ([]domain.ExchangeRatePoint, error) {
	rows, err := readRows(r, 3, dateHeader)
	if err != nil {
		return nil, err
	}

	rates := make([]domain.ExchangeRatePoint, 0, len(rows))
	for i, row := range rows {
		t, err := domain.ParseDate(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		eurUSD, okUSD, err := parsePositive("eur_usd", row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		eurCZK, okCZK, err := parsePositive("eur_czk", row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if !okUSD || !okCZK {
			continue
		}

		p := domain.ExchangeRatePoint{Date: domain.FormatDate(t), EURUSD: eurUSD, EURCZK: eurCZK}
		if len(row) > 3 {
			usdCZK, ok, err := parsePositive("usd_czk", row[3])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			if ok {
				p.USDCZK = usdCZK
			}
		}
		if p.USDCZK == 0 {
			p.USDCZK = eurCZK / eurUSD
		}
		rates = append(rates, p)
	}
	return rates, nil
}

// ParseMappingCSV reads "index_name,index_code" rows
func ParseMappingCSV(r io.Reader) ([]Mapping, error) {
	rows, err := readRows(r, 2, func(record []string) bool {
		return strings.EqualFold(strings.TrimSpace(record[0]), "index_name")
	})
	if err != nil {
		return nil, err
	}

	mappings := make([]Mapping, 0, len(rows))
	for i, row := range rows {
		m := Mapping{IndexName: strings.TrimSpace(row[0]), IndexCode: strings.TrimSpace(row[1])}
		if m.IndexName == "" || m.IndexCode == "" {
			return nil, fmt.Errorf("row %d: index_name and index_code are required", i+1)
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}
