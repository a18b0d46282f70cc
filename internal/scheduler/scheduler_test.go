package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	err  error
	runs atomic.Int32
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return j.name }

func newTestScheduler() *Scheduler {
	return New(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := newTestScheduler()
	err := s.AddJob("not a schedule", &countingJob{name: "bad"})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestAddJob_AcceptsSecondsAndDescriptors(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob("0 */5 * * * *", &countingJob{name: "a"}))
	require.NoError(t, s.AddJob("@hourly", &countingJob{name: "b"}))
	require.NoError(t, s.AddJob("@every 30s", &countingJob{name: "c"}))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, s.Jobs())
}

func TestAddJob_ReplacesSameName(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob("@hourly", &countingJob{name: "cleanup"}))
	require.NoError(t, s.AddJob("@daily", &countingJob{name: "cleanup"}))

	assert.Equal(t, []string{"cleanup"}, s.Jobs())
	assert.Len(t, s.cron.Entries(), 1)
}

func TestRunNow(t *testing.T) {
	s := newTestScheduler()

	ok := &countingJob{name: "ok"}
	require.NoError(t, s.RunNow(ok))
	assert.Equal(t, int32(1), ok.runs.Load())

	failing := &countingJob{name: "failing", err: errors.New("boom")}
	assert.EqualError(t, s.RunNow(failing), "boom")
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "tick", err: errors.New("failures do not stop the schedule")}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
