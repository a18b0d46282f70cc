package correlation

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/backtester/internal/modules/indexes"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Asset names an index to correlate
type Asset struct {
	ISIN      string `json:"isin"`
	Name      string `json:"name"`
	IndexCode string `json:"indexCode"`
}

// Service loads index series and correlates them
type Service struct {
	loader indexes.Loader
	log    zerolog.Logger
}

// NewService creates a new correlation service
func NewService(loader indexes.Loader, log zerolog.Logger) *Service {
	return &Service{
		loader: loader,
		log:    log.With().Str("component", "correlation").Logger(),
	}
}

// Correlate loads every asset's index over [start, end] and correlates the
// monthly returns. Fewer than two assets yield an empty result.
func (s *Service) Correlate(ctx context.Context, assets []Asset, start, end time.Time) (Result, error) {
	if len(assets) < 2 {
		return Result{Correlations: []Pair{}, Names: []string{}, Matrix: [][]float64{}}, nil
	}

	loader := indexes.NewRequestCache(s.loader)
	series := make([]Series, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range assets {
		g.Go(func() error {
			data, err := loader.LoadIndexData(gctx, a.IndexCode, start, end)
			if err != nil {
				return fmt.Errorf("failed to load index %s: %w", a.IndexCode, err)
			}
			series[i] = Series{Code: a.IndexCode, Name: a.Name, Points: data.Points}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	for _, sr := range series {
		if len(sr.Points) == 0 {
			s.log.Warn().Str("index", sr.Code).Msg("No index data for correlation; asset skipped")
		}
	}

	res, err := Calculate(ctx, series)
	if err != nil {
		return Result{}, err
	}

	s.log.Debug().
		Int("assets", len(res.Names)).
		Int("pairs", len(res.Correlations)).
		Msg("Correlation computed")

	return res, nil
}
