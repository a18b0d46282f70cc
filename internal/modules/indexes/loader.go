// Package indexes provides access to historical index price series and
// the mapping from fund index names to canonical index codes.
package indexes

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/backtester/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Loader loads an index price series clipped to [start, end] (inclusive).
// A zero start or end leaves that side unbounded. An index without data
// yields an empty series, not an error.
type Loader interface {
	LoadIndexData(ctx context.Context, code string, start, end time.Time) (domain.IndexData, error)
}

// RequestCache memoizes loads for the lifetime of one request, so portfolio
// items sharing an index hit the store once. Concurrent loads of the same
// key are coalesced. Failed loads are not cached.
type RequestCache struct {
	loader Loader
	group  singleflight.Group

	mu      sync.RWMutex
	entries map[string]domain.IndexData
}

// NewRequestCache wraps loader with a per-request memo
func NewRequestCache(loader Loader) *RequestCache {
	return &RequestCache{
		loader:  loader,
		entries: make(map[string]domain.IndexData),
	}
}

func cacheKey(code string, start, end time.Time) string {
	return code + "|" + start.Format(time.RFC3339) + "|" + end.Format(time.RFC3339)
}

// LoadIndexData implements Loader
func (c *RequestCache) LoadIndexData(ctx context.Context, code string, start, end time.Time) (domain.IndexData, error) {
	key := cacheKey(code, start, end)

	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		cached, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		data, err := c.loader.LoadIndexData(ctx, code, start, end)
		if err != nil {
			return domain.IndexData{}, err
		}
		c.mu.Lock()
		c.entries[key] = data
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return domain.IndexData{}, err
	}

	return v.(domain.IndexData), nil
}

// Len returns the number of cached series
func (c *RequestCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
