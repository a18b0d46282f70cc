package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/aristath/backtester/internal/domain"
	"github.com/rs/zerolog"
)

// IndexWriter stores index levels and name mappings
type IndexWriter interface {
	UpsertIndexData(ctx context.Context, code string, points []domain.IndexDataPoint) error
	UpsertMapping(ctx context.Context, indexName, code string) error
}

// RateWriter stores exchange rates
type RateWriter interface {
	UpsertRates(ctx context.Context, rates []domain.ExchangeRatePoint) error
}

// Importer loads CSV documents into the history store
type Importer struct {
	indexes IndexWriter
	rates   RateWriter
	log     zerolog.Logger
}

// New creates an importer
func New(indexes IndexWriter, rates RateWriter, log zerolog.Logger) *Importer {
	return &Importer{
		indexes: indexes,
		rates:   rates,
		log:     log.With().Str("component", "importer").Logger(),
	}
}

// ImportIndex stores the levels of one index. With monthly set, daily input
// is first reduced to month-end closes.
func (im *Importer) ImportIndex(ctx context.Context, code string, r io.Reader, monthly bool) (int, error) {
	if code == "" {
		return 0, fmt.Errorf("index code is required")
	}
	points, err := ParseIndexCSV(r)
	if err != nil {
		return 0, fmt.Errorf("failed to parse index %s: %w", code, err)
	}
	if monthly {
		points = ResampleMonthEnd(points)
	}
	if err := im.indexes.UpsertIndexData(ctx, code, points); err != nil {
		return 0, err
	}

	if len(points) > 0 {
		im.log.Info().
			Str("index", code).
			Int("points", len(points)).
			Str("from", points[0].Date).
			Str("to", points[len(points)-1].Date).
			Msg("Imported index data")
	} else {
		im.log.Warn().Str("index", code).Msg("No usable index levels in input")
	}
	return len(points), nil
}

// ImportRates stores exchange rates
func (im *Importer) ImportRates(ctx context.Context, r io.Reader) (int, error) {
	rates, err := ParseRatesCSV(r)
	if err != nil {
		return 0, fmt.Errorf("failed to parse rates: %w", err)
	}
	if err := im.rates.UpsertRates(ctx, rates); err != nil {
		return 0, err
	}
	im.log.Info().Int("rates", len(rates)).Msg("Imported exchange rates")
	return len(rates), nil
}

// ImportMappings stores fund index name mappings
func (im *Importer) ImportMappings(ctx context.Context, r io.Reader) (int, error) {
	mappings, err := ParseMappingCSV(r)
	if err != nil {
		return 0, fmt.Errorf("failed to parse mappings: %w", err)
	}
	for _, m := range mappings {
		if err := im.indexes.UpsertMapping(ctx, m.IndexName, m.IndexCode); err != nil {
			return 0, fmt.Errorf("failed to store mapping %q: %w", m.IndexName, err)
		}
	}
	im.log.Info().Int("mappings", len(mappings)).Msg("Imported index mappings")
	return len(mappings), nil
}
