// Package currency loads historical EUR exchange rates and converts
// EUR-denominated series into the presentation currency.
package currency

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/backtester/internal/database"
	"github.com/aristath/backtester/internal/domain"
	"github.com/rs/zerolog"
)

// Repository reads and writes exchange_rates_historical
type Repository struct {
	db     *sql.DB
	driver string
	log    zerolog.Logger
}

// NewRepository creates a new exchange rate repository
func NewRepository(db *sql.DB, driver string, log zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		driver: driver,
		log:    log.With().Str("component", "fx_repository").Logger(),
	}
}

// LoadExchangeRates returns the rates within [start, end], ascending by date.
// A zero bound leaves that side open. Rows with a non-positive EUR/CZK or
// EUR/USD rate are skipped. A missing USD/CZK cross rate is derived.
func (r *Repository) LoadExchangeRates(ctx context.Context, start, end time.Time) ([]domain.ExchangeRatePoint, error) {
	query := "SELECT date, eur_usd, eur_czk, usd_czk FROM exchange_rates_historical WHERE 1 = 1"
	var args []interface{}
	if !start.IsZero() {
		query += " AND date >= ?"
		args = append(args, domain.FormatDate(start))
	}
	if !end.IsZero() {
		query += " AND date <= ?"
		args = append(args, domain.FormatDate(end))
	}
	query += " ORDER BY date ASC"

	rows, err := r.db.QueryContext(ctx, database.Rebind(r.driver, query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchange rates: %w", err)
	}
	defer rows.Close()

	rates := make([]domain.ExchangeRatePoint, 0)
	skipped := 0
	for rows.Next() {
		var (
			p      domain.ExchangeRatePoint
			eurUSD sql.NullFloat64
			usdCZK sql.NullFloat64
		)
		if err := rows.Scan(&p.Date, &eurUSD, &p.EURCZK, &usdCZK); err != nil {
			return nil, fmt.Errorf("failed to scan exchange rate: %w", err)
		}
		p.EURUSD = eurUSD.Float64
		if p.EURCZK <= 0 || p.EURUSD <= 0 {
			skipped++
			continue
		}
		p.USDCZK = usdCZK.Float64
		if !usdCZK.Valid || p.USDCZK <= 0 {
			p.USDCZK = p.EURCZK / p.EURUSD
		}
		rates = append(rates, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exchange rates: %w", err)
	}

	if skipped > 0 {
		r.log.Debug().Int("skipped", skipped).Msg("Skipped invalid exchange rate rows")
	}

	return rates, nil
}

// UpsertRates inserts or replaces rate points in one transaction
func (r *Repository) UpsertRates(ctx context.Context, rates []domain.ExchangeRatePoint) error {
	if len(rates) == 0 {
		return nil
	}

	query := database.Rebind(r.driver, `
		INSERT INTO exchange_rates_historical (date, eur_usd, eur_czk, usd_czk)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			eur_usd = excluded.eur_usd,
			eur_czk = excluded.eur_czk,
			usd_czk = excluded.usd_czk
	`)

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare exchange rate upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range rates {
			if _, err := domain.ParseDate(p.Date); err != nil {
				return fmt.Errorf("invalid exchange rate date %q: %w", p.Date, err)
			}
			if _, err := stmt.ExecContext(ctx, p.Date, p.EURUSD, p.EURCZK, p.USDCZK); err != nil {
				return fmt.Errorf("failed to upsert exchange rate for %s: %w", p.Date, err)
			}
		}
		return nil
	})
}
