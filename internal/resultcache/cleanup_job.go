package resultcache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// EvictionObserver receives the number of expired entries removed per kind
type EvictionObserver interface {
	ObserveEvictions(counts map[string]int64)
}

// CleanupJob removes expired entries from the result cache.
type CleanupJob struct {
	repo     *Repository
	timeout  time.Duration
	log      zerolog.Logger
	observer EvictionObserver
}

// NewCleanupJob creates a new result cache cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:    repo,
		timeout: time.Minute,
		log:     log.With().Str("job", "result_cache_cleanup").Logger(),
	}
}

// WithObserver reports eviction counts to o after every run
func (j *CleanupJob) WithObserver(o EvictionObserver) *CleanupJob {
	j.observer = o
	return j
}

// Run executes the cleanup job.
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	results, err := j.repo.DeleteExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired results")
		return err
	}

	if j.observer != nil {
		j.observer.ObserveEvictions(results)
	}

	var totalDeleted int64
	for kind, count := range results {
		if count > 0 {
			j.log.Debug().
				Str("kind", kind).
				Int64("deleted", count).
				Msg("Cleaned up expired results")
			totalDeleted += count
		}
	}

	if totalDeleted > 0 {
		j.log.Info().
			Int64("total_deleted", totalDeleted).
			Msg("Result cache cleanup completed")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "result_cache_cleanup"
}
