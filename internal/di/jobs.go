package di

import (
	"fmt"

	"github.com/aristath/backtester/internal/config"
	"github.com/aristath/backtester/internal/resultcache"
	"github.com/aristath/backtester/internal/scheduler"
	"github.com/rs/zerolog"
)

// walCheckpointSchedule runs the WAL checkpoint every 30 minutes
const walCheckpointSchedule = "0 */30 * * * *"

// RegisterJobs creates the background jobs and schedules them on sched
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	cleanup := resultcache.NewCleanupJob(container.ResultRepo, log)
	if container.Metrics != nil {
		cleanup = cleanup.WithObserver(container.Metrics)
	}

	jobs := &JobInstances{
		ResultCacheCleanup: cleanup,
		WALCheckpoint:      scheduler.NewWALCheckpointJob(log, container.Databases()...),
	}

	if err := sched.AddJob(cfg.Cache.CleanupSchedule, jobs.ResultCacheCleanup); err != nil {
		return nil, fmt.Errorf("failed to schedule %s: %w", jobs.ResultCacheCleanup.Name(), err)
	}
	if err := sched.AddJob(walCheckpointSchedule, jobs.WALCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to schedule %s: %w", jobs.WALCheckpoint.Name(), err)
	}

	log.Info().Int("jobs", 2).Msg("Background jobs registered")
	return jobs, nil
}
