// Package testing provides testing utilities and helpers for the backtester.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/backtester/internal/database"
)

// NewTestDB creates a file-backed SQLite database in a temp dir with the named schema applied.
// Returns the database instance and a cleanup function that closes the connection.
//
// Supported schema names:
//   - "history" - applies history_schema.sql
//   - "cache" - applies cache_schema.sql
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	profile := database.ProfileStandard
	if name == "cache" {
		profile = database.ProfileCache
	}

	db, err := database.New(database.Config{
		Driver:  database.DriverSQLite,
		Path:    filepath.Join(t.TempDir(), "test_"+name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	}
}
