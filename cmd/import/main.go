// Command import loads CSV exports into the history database.
//
// Usage:
//
//	import -kind index -code msci_world -file msci_world.csv [-monthly=false]
//	import -kind rates -file eur_rates.csv
//	import -kind mapping -file index_mapping.csv
//
// The database is selected by the same environment as the server
// (BACKTEST_DATA_DIR, DB_DRIVER, DATABASE_URL).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/backtester/internal/config"
	"github.com/aristath/backtester/internal/database"
	"github.com/aristath/backtester/internal/importer"
	"github.com/aristath/backtester/internal/modules/currency"
	"github.com/aristath/backtester/internal/modules/indexes"
	"github.com/aristath/backtester/pkg/logger"
)

func main() {
	kind := flag.String("kind", "index", "What to import: index, rates or mapping")
	code := flag.String("code", "", "Index code (kind=index)")
	file := flag.String("file", "-", "CSV file, - for stdin")
	monthly := flag.Bool("monthly", true, "Reduce index levels to month-end closes")
	flag.Parse()

	log := logger.New(logger.Config{
		Level:  "info",
		Pretty: true,
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var in io.Reader = os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatal().Err(err).Str("file", *file).Msg("Failed to open input")
		}
		defer f.Close()
		in = f
	}

	db, err := database.New(database.Config{
		Driver:  cfg.DBDriver,
		Path:    cfg.SQLitePath(),
		DSN:     cfg.DatabaseURL,
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate history database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	im := importer.New(
		indexes.NewRepository(db.Conn(), db.Driver(), log),
		currency.NewRepository(db.Conn(), db.Driver(), log),
		log,
	)

	var n int
	switch *kind {
	case "index":
		n, err = im.ImportIndex(ctx, *code, in, *monthly)
	case "rates":
		n, err = im.ImportRates(ctx, in)
	case "mapping":
		n, err = im.ImportMappings(ctx, in)
	default:
		err = fmt.Errorf("unknown kind %q", *kind)
	}
	if err != nil {
		log.Fatal().Err(err).Str("kind", *kind).Msg("Import failed")
	}

	log.Info().Str("kind", *kind).Int("rows", n).Msg("Import completed")
}
