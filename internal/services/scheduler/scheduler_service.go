// Package scheduler runs the background maintenance jobs on cron
// schedules: pruning old import sessions and marking long-unrefreshed
// bookmark metadata stale.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
)

const (
	JobSessionPrune = "session-prune"
	JobStaleSweep   = "stale-sweep"
)

// jobEntry is one registered job with its live state.
type jobEntry struct {
	name        string
	schedule    string
	description string
	handler     func(ctx context.Context) error
	cronID      cron.EntryID
	lastRun     *time.Time
	isRunning   bool
	lastError   string
}

// Service implements SchedulerService over robfig/cron. Jobs never run
// concurrently with each other; runMu serializes them.
type Service struct {
	config  *common.SchedulerConfig
	storage interfaces.StorageManager
	cron    *cron.Cron
	logger  arbor.ILogger

	mu      sync.Mutex // protects jobs and running
	runMu   sync.Mutex // serializes job execution
	jobs    map[string]*jobEntry
	running bool
}

// NewService registers the maintenance jobs against the storage manager.
func NewService(config *common.SchedulerConfig, storage interfaces.StorageManager, logger arbor.ILogger) interfaces.SchedulerService {
	s := &Service{
		config:  config,
		storage: storage,
		cron:    cron.New(),
		logger:  logger,
		jobs:    make(map[string]*jobEntry),
	}

	s.register(JobSessionPrune, config.SessionPruneSchedule,
		fmt.Sprintf("Delete import sessions older than %d days", config.SessionRetentionDays),
		s.pruneSessions)
	s.register(JobStaleSweep, config.StaleSweepSchedule,
		fmt.Sprintf("Mark bookmark metadata stale after %d days", config.StaleAfterDays),
		s.sweepStale)

	return s
}

func (s *Service) register(name, schedule, description string, handler func(ctx context.Context) error) {
	s.jobs[name] = &jobEntry{
		name:        name,
		schedule:    schedule,
		description: description,
		handler:     handler,
	}
}

// Start schedules every registered job. Disabled config makes this a
// logged no-op so the rest of the app starts identically either way.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info().Msg("Scheduler disabled by configuration")
		return nil
	}
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	for _, job := range s.jobs {
		job := job
		id, err := s.cron.AddFunc(job.schedule, func() { s.runJob(job) })
		if err != nil {
			return fmt.Errorf("failed to schedule %s (%q): %w", job.name, job.schedule, err)
		}
		job.cronID = id
		s.logger.Info().Str("job", job.name).Str("schedule", job.schedule).Msg("Scheduled maintenance job")
	}

	s.cron.Start()
	s.running = true
	return nil
}

// Stop halts the cron loop and waits for any in-flight job.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// TriggerJob runs a job immediately, outside its schedule.
func (s *Service) TriggerJob(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	s.runJob(job)

	s.mu.Lock()
	defer s.mu.Unlock()
	if job.lastError != "" {
		return fmt.Errorf("job %s failed: %s", name, job.lastError)
	}
	return nil
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// JobStatuses returns a snapshot of every registered job.
func (s *Service) JobStatuses() map[string]*interfaces.JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make(map[string]*interfaces.JobStatus, len(s.jobs))
	for name, job := range s.jobs {
		status := &interfaces.JobStatus{
			Name:        job.name,
			Schedule:    job.schedule,
			Description: job.description,
			LastRun:     job.lastRun,
			IsRunning:   job.isRunning,
			LastError:   job.lastError,
		}
		if s.running && job.cronID != 0 {
			next := s.cron.Entry(job.cronID).Next
			if !next.IsZero() {
				status.NextRun = &next
			}
		}
		statuses[name] = status
	}
	return statuses
}

func (s *Service) runJob(job *jobEntry) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.Lock()
	job.isRunning = true
	s.mu.Unlock()

	err := job.handler(context.Background())

	now := time.Now()
	s.mu.Lock()
	job.isRunning = false
	job.lastRun = &now
	job.lastError = ""
	if err != nil {
		job.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("job", job.name).Msg("Maintenance job failed")
	}
}

// pruneSessions deletes import sessions past the retention window.
func (s *Service) pruneSessions(ctx context.Context) error {
	deleted, err := s.storage.SessionStorage().DeleteOlderThan(ctx, s.config.SessionRetentionDays)
	if err != nil {
		return fmt.Errorf("session prune failed: %w", err)
	}
	s.logger.Info().Int("deleted", deleted).Int("retention_days", s.config.SessionRetentionDays).Msg("Pruned import sessions")
	return nil
}

// sweepStale flags bookmarks whose enrichment has not been refreshed
// within the staleness window. The flag clears on the next re-fetch.
func (s *Service) sweepStale(ctx context.Context) error {
	marked, err := s.storage.BookmarkStorage().MarkStale(ctx, s.config.StaleAfterDays)
	if err != nil {
		return fmt.Errorf("stale sweep failed: %w", err)
	}
	s.logger.Info().Int("marked", marked).Int("stale_after_days", s.config.StaleAfterDays).Msg("Swept stale bookmark metadata")
	return nil
}
