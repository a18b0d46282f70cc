package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/backtester/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockLoader is a testify mock of the index data loader
type MockLoader struct {
	mock.Mock
}

// LoadIndexData implements indexes.Loader
func (m *MockLoader) LoadIndexData(ctx context.Context, code string, start, end time.Time) (domain.IndexData, error) {
	args := m.Called(ctx, code, start, end)
	return args.Get(0).(domain.IndexData), args.Error(1)
}

// FakeLoader serves fixed series from memory, clipped to the requested range
type FakeLoader struct {
	mu     sync.Mutex
	series map[string]domain.IndexData
	errs   map[string]error
	calls  map[string]int
}

// NewFakeLoader creates a loader serving the given series keyed by their index code
func NewFakeLoader(series ...domain.IndexData) *FakeLoader {
	f := &FakeLoader{
		series: make(map[string]domain.IndexData),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
	for _, s := range series {
		f.series[s.IndexCode] = s
	}
	return f
}

// SetError makes every load of code fail with err
func (f *FakeLoader) SetError(code string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[code] = err
}

// Calls returns how many times code was loaded
func (f *FakeLoader) Calls(code string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[code]
}

// LoadIndexData implements indexes.Loader
func (f *FakeLoader) LoadIndexData(ctx context.Context, code string, start, end time.Time) (domain.IndexData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[code]++
	if err := f.errs[code]; err != nil {
		return domain.IndexData{}, fmt.Errorf("load %s: %w", code, err)
	}

	src := f.series[code]
	out := domain.IndexData{IndexCode: code, IndexName: src.IndexName, Points: []domain.IndexDataPoint{}}
	for _, p := range src.Points {
		if !start.IsZero() && p.Date < domain.FormatDate(start) {
			continue
		}
		if !end.IsZero() && p.Date > domain.FormatDate(end) {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out, nil
}
