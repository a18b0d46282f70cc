package indexes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aristath/backtester/internal/database"
	"github.com/aristath/backtester/internal/domain"
	"github.com/rs/zerolog"
)

const (
	minDate = "0001-01-01"
	maxDate = "9999-12-31"
)

// AvailableIndex describes an index that has price data
type AvailableIndex struct {
	IndexCode  string `json:"indexCode"`
	IndexName  string `json:"indexName"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	DataPoints int    `json:"dataPoints"`
}

// Repository reads and writes index series in the history store.
// Queries are written with '?' placeholders and rebound per driver.
type Repository struct {
	db     *sql.DB
	driver string
	log    zerolog.Logger
}

// NewRepository creates a new index repository
func NewRepository(db *sql.DB, driver string, log zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		driver: driver,
		log:    log.With().Str("component", "index_repository").Logger(),
	}
}

func (r *Repository) q(query string) string {
	return database.Rebind(r.driver, query)
}

func dateBound(t time.Time, fallback string) string {
	if t.IsZero() {
		return fallback
	}
	return domain.FormatDate(t)
}

// LoadIndexData implements Loader. Points are ascending by date and unique per date;
// non-positive or non-finite levels are dropped.
func (r *Repository) LoadIndexData(ctx context.Context, code string, start, end time.Time) (domain.IndexData, error) {
	result := domain.IndexData{IndexCode: code, Points: []domain.IndexDataPoint{}}

	rows, err := r.db.QueryContext(ctx, r.q(`
		SELECT date, close_price
		FROM index_historical_data
		WHERE index_code = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`), code, dateBound(start, minDate), dateBound(end, maxDate))
	if err != nil {
		return result, fmt.Errorf("failed to query index data for %s: %w", code, err)
	}
	defer rows.Close()

	skipped := 0
	for rows.Next() {
		var p domain.IndexDataPoint
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return result, fmt.Errorf("failed to scan index point for %s: %w", code, err)
		}
		if len(p.Date) > len(domain.DateLayout) {
			p.Date = p.Date[:len(domain.DateLayout)]
		}
		if p.Value <= 0 || math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			skipped++
			continue
		}
		n := len(result.Points)
		if n > 0 && result.Points[n-1].Date == p.Date {
			result.Points[n-1] = p
			continue
		}
		result.Points = append(result.Points, p)
	}

	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("error iterating index data for %s: %w", code, err)
	}

	if skipped > 0 {
		r.log.Debug().Str("index", code).Int("skipped", skipped).Msg("Dropped invalid index levels")
	}

	return result, nil
}

// UpsertIndexData inserts or replaces price points for an index
func (r *Repository) UpsertIndexData(ctx context.Context, code string, points []domain.IndexDataPoint) error {
	if len(points) == 0 {
		return nil
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, r.q(`
			INSERT INTO index_historical_data (index_code, date, close_price)
			VALUES (?, ?, ?)
			ON CONFLICT (index_code, date) DO UPDATE SET close_price = excluded.close_price
		`))
		if err != nil {
			return fmt.Errorf("failed to prepare index upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, code, p.Date, p.Value); err != nil {
				return fmt.Errorf("failed to upsert %s@%s: %w", code, p.Date, err)
			}
		}
		return nil
	})
}

// UpsertMapping maps a fund index name to a canonical index code
func (r *Repository) UpsertMapping(ctx context.Context, indexName, code string) error {
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO index_mapping (index_name, index_code)
		VALUES (?, ?)
		ON CONFLICT (index_name) DO UPDATE SET index_code = excluded.index_code
	`), indexName, code)
	if err != nil {
		return fmt.Errorf("failed to upsert index mapping %q: %w", indexName, err)
	}
	return nil
}

// GetIndexCodeForETF resolves a fund's index name to an index code: exact
// mapping first, then the built-in pattern table. Returns false when unresolved.
func (r *Repository) GetIndexCodeForETF(ctx context.Context, indexName string) (string, bool, error) {
	indexName = strings.TrimSpace(indexName)
	if indexName == "" {
		return "", false, nil
	}

	var code string
	err := r.db.QueryRowContext(ctx, r.q(`SELECT index_code FROM index_mapping WHERE index_name = ?`), indexName).Scan(&code)
	switch {
	case err == nil:
		return code, true, nil
	case errors.Is(err, sql.ErrNoRows):
		code, ok := MatchIndexPattern(indexName)
		return code, ok, nil
	default:
		return "", false, fmt.Errorf("failed to look up index mapping %q: %w", indexName, err)
	}
}

// GetAvailableIndexes lists mapped indexes that have at least one price point,
// one entry per index code.
func (r *Repository) GetAvailableIndexes(ctx context.Context) ([]AvailableIndex, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.index_code,
			COALESCE((SELECT MIN(m.index_name) FROM index_mapping m WHERE m.index_code = s.index_code), s.index_code),
			s.first_date, s.last_date, s.points
		FROM (
			SELECT index_code, MIN(date) AS first_date, MAX(date) AS last_date, COUNT(*) AS points
			FROM index_historical_data
			GROUP BY index_code
		) s
		WHERE EXISTS (SELECT 1 FROM index_mapping m WHERE m.index_code = s.index_code)
		ORDER BY s.index_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query available indexes: %w", err)
	}
	defer rows.Close()

	indexes := make([]AvailableIndex, 0)
	for rows.Next() {
		var idx AvailableIndex
		if err := rows.Scan(&idx.IndexCode, &idx.IndexName, &idx.StartDate, &idx.EndDate, &idx.DataPoints); err != nil {
			return nil, fmt.Errorf("failed to scan available index: %w", err)
		}
		indexes = append(indexes, idx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating available indexes: %w", err)
	}

	return indexes, nil
}
