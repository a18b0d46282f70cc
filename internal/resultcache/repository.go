// Package resultcache provides a persistent cross-request cache for computed
// results. Payloads are stored as msgpack blobs with expiration timestamps.
package resultcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Repository provides cache operations on the result_cache table.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new result cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Store saves value with expiration = now + ttl, replacing any previous entry.
func (r *Repository) Store(ctx context.Context, key, kind string, value interface{}, ttl time.Duration) error {
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s result: %w", kind, err)
	}

	now := r.now()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO result_cache (cache_key, kind, data, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (cache_key) DO UPDATE SET
			kind = excluded.kind,
			data = excluded.data,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		key, kind, payload, now.Add(ttl).Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store %s result: %w", kind, err)
	}

	return nil
}

// GetIfFresh decodes the entry into dst only if expires_at > now.
// Returns false, nil if the key doesn't exist or the entry is expired.
func (r *Repository) GetIfFresh(ctx context.Context, key string, dst interface{}) (bool, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT data FROM result_cache WHERE cache_key = ? AND expires_at > ?",
		key, r.now().Unix(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cached result: %w", err)
	}

	if err := msgpack.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("failed to decode cached result: %w", err)
	}

	return true, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM result_cache WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cached result: %w", err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at <= now.
// Returns the number of rows deleted per result kind.
func (r *Repository) DeleteExpired(ctx context.Context) (map[string]int64, error) {
	now := r.now().Unix()

	rows, err := r.db.QueryContext(ctx,
		"SELECT kind, COUNT(*) FROM result_cache WHERE expires_at <= ? GROUP BY kind", now)
	if err != nil {
		return nil, fmt.Errorf("failed to count expired results: %w", err)
	}
	counts := make(map[string]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expired count: %w", err)
		}
		counts[kind] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired counts: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM result_cache WHERE expires_at <= ?", now); err != nil {
		return nil, fmt.Errorf("failed to delete expired results: %w", err)
	}

	return counts, nil
}

// Count returns the number of stored entries, fresh or not.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM result_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cached results: %w", err)
	}
	return n, nil
}
