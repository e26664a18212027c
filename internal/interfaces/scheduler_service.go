package interfaces

import "time"

// JobStatus reports one registered maintenance job.
type JobStatus struct {
	Name        string     `json:"name"`
	Schedule    string     `json:"schedule"`
	Description string     `json:"description"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	IsRunning   bool       `json:"is_running"`
	LastError   string     `json:"last_error,omitempty"`
}

// SchedulerService runs the cron-based maintenance jobs: import session
// pruning and the stale enrichment sweep.
type SchedulerService interface {
	// Start schedules the registered jobs. No-op when disabled by config.
	Start() error

	// Stop halts the scheduler and waits for a running job to finish.
	Stop() error

	// TriggerJob runs a registered job immediately, outside its schedule.
	TriggerJob(name string) error

	// IsRunning reports whether the scheduler is active.
	IsRunning() bool

	// JobStatuses returns the status of every registered job.
	JobStatuses() map[string]*JobStatus
}
