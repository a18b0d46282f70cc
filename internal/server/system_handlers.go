package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/backtester/internal/database"
	"github.com/aristath/backtester/internal/di"
	"github.com/aristath/backtester/internal/scheduler"
)

// SystemHandlers serves process, host and database status
type SystemHandlers struct {
	log       zerolog.Logger
	databases []*database.DB
	jobs      map[string]scheduler.Job
	sched     *scheduler.Scheduler
	started   time.Time

	// cpuPercent and memPercent are replaceable in tests
	cpuPercent func() (float64, error)
	memPercent func() (float64, error)
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Goroutines    int              `json:"goroutines"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryPercent float64          `json:"memory_percent"`
	HeapAllocMB   float64          `json:"heap_alloc_mb"`
	Databases     []database.Stats `json:"databases"`
	Jobs          []string         `json:"jobs"`
	LastChecked   string           `json:"last_checked"`
}

// NewSystemHandlers creates system handlers. jobs and sched may be nil.
func NewSystemHandlers(log zerolog.Logger, databases []*database.DB, jobs *di.JobInstances, sched *scheduler.Scheduler) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		databases: databases,
		jobs:      make(map[string]scheduler.Job),
		sched:     sched,
		started:   time.Now(),
		cpuPercent: func() (float64, error) {
			// 100ms sample keeps the endpoint responsive
			p, err := cpu.Percent(100*time.Millisecond, false)
			if err != nil || len(p) == 0 {
				return 0, err
			}
			return p[0], nil
		},
		memPercent: func() (float64, error) {
			v, err := mem.VirtualMemory()
			if err != nil {
				return 0, err
			}
			return v.UsedPercent, nil
		},
	}

	if jobs != nil {
		for _, job := range []scheduler.Job{jobs.ResultCacheCleanup, jobs.WALCheckpoint} {
			if job != nil {
				h.jobs[job.Name()] = job
			}
		}
	}

	return h
}

// HandleSystemStatus returns process, host and database status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPct, err := h.cpuPercent()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	}
	memPct, err := h.memPercent()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	status := "healthy"
	for _, db := range h.databases {
		if err := db.QuickCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database ping failed")
			status = "degraded"
		}
	}

	jobs := []string{}
	if h.sched != nil {
		jobs = h.sched.Jobs()
	}

	writeJSON(w, h.log, http.StatusOK, SystemStatusResponse{
		Status:        status,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPct,
		MemoryPercent: memPct,
		HeapAllocMB:   float64(ms.HeapAlloc) / 1024 / 1024,
		Databases:     h.databaseStats(),
		Jobs:          jobs,
		LastChecked:   time.Now().Format(time.RFC3339),
	})
}

// HandleDatabaseStats returns connection pool and file size statistics per database
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"data": h.databaseStats(),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleTriggerJob runs a registered job immediately
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		http.Error(w, "Unknown job", http.StatusNotFound)
		return
	}

	run := job.Run
	if h.sched != nil {
		run = func() error { return h.sched.RunNow(job) }
	}
	if err := run(); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		http.Error(w, "Job failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"status": "success",
		"job":    name,
	})
}

func (h *SystemHandlers) databaseStats() []database.Stats {
	stats := make([]database.Stats, 0, len(h.databases))
	for _, db := range h.databases {
		stats = append(stats, db.GetStats())
	}
	return stats
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
