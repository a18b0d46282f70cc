package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// DefaultTTL is how long a computed result stays fresh
const DefaultTTL = time.Hour

// Cache stores results for a fixed TTL. A zero TTL disables it.
type Cache struct {
	repo *Repository
	ttl  time.Duration
}

// New creates a cache over repo
func New(repo *Repository, ttl time.Duration) *Cache {
	return &Cache{repo: repo, ttl: ttl}
}

// Enabled reports whether results are cached at all
func (c *Cache) Enabled() bool {
	return c != nil && c.ttl > 0
}

// Get decodes a fresh entry into dst
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	return c.repo.GetIfFresh(ctx, key, dst)
}

// Set stores value under key
func (c *Cache) Set(ctx context.Context, key, kind string, value interface{}) error {
	if !c.Enabled() {
		return nil
	}
	return c.repo.Store(ctx, key, kind, value, c.ttl)
}

// Key derives a stable cache key from a result kind and the values that determine it.
// Parts are msgpack-encoded and hashed with SHA-256.
func Key(kind string, parts ...interface{}) (string, error) {
	h := sha256.New()
	h.Write([]byte(kind))
	enc := msgpack.NewEncoder(h)
	enc.SetSortMapKeys(true)
	for i, part := range parts {
		if err := enc.Encode(part); err != nil {
			return "", fmt.Errorf("failed to encode cache key part %d: %w", i, err)
		}
	}
	return kind + ":" + hex.EncodeToString(h.Sum(nil)), nil
}
