package scheduler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
	"github.com/ternarybob/fury/internal/storage/sqlite"
	"github.com/ternarybob/fury/internal/taxonomy"
)

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	presets, err := taxonomy.LoadPresets("")
	require.NoError(t, err)
	storage, err := sqlite.NewManager(arbor.NewLogger(), &common.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "scheduler_test.db"),
	}, presets)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func testConfig() *common.SchedulerConfig {
	return &common.SchedulerConfig{
		Enabled:              true,
		SessionRetentionDays: 90,
		SessionPruneSchedule: "0 3 * * *",
		StaleSweepSchedule:   "30 3 * * *",
		StaleAfterDays:       30,
	}
}

func TestStartStop(t *testing.T) {
	svc := NewService(testConfig(), newTestStorage(t), arbor.NewLogger())

	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())
	assert.Error(t, svc.Start(), "double start is rejected")

	statuses := svc.JobStatuses()
	require.Contains(t, statuses, JobSessionPrune)
	require.Contains(t, statuses, JobStaleSweep)
	assert.NotNil(t, statuses[JobSessionPrune].NextRun, "scheduled jobs report their next run")

	require.NoError(t, svc.Stop())
	assert.False(t, svc.IsRunning())
	require.NoError(t, svc.Stop(), "stop is idempotent")
}

func TestDisabledSchedulerNeverRuns(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	svc := NewService(cfg, newTestStorage(t), arbor.NewLogger())

	require.NoError(t, svc.Start())
	assert.False(t, svc.IsRunning())
}

func TestInvalidScheduleFailsStart(t *testing.T) {
	cfg := testConfig()
	cfg.StaleSweepSchedule = "not a schedule"
	svc := NewService(cfg, newTestStorage(t), arbor.NewLogger())

	assert.Error(t, svc.Start())
}

func TestTriggerSessionPrune(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	_, err := storage.SessionStorage().Create(ctx, &models.ImportSession{FileName: "old.html", TotalParsed: 1, Successful: 1})
	require.NoError(t, err)

	cfg := testConfig()
	cfg.SessionRetentionDays = -1 // cutoff in the future, everything qualifies
	svc := NewService(cfg, storage, arbor.NewLogger())

	require.NoError(t, svc.TriggerJob(JobSessionPrune))

	sessions, err := storage.SessionStorage().List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	status := svc.JobStatuses()[JobSessionPrune]
	assert.NotNil(t, status.LastRun)
	assert.Empty(t, status.LastError)
}

func TestTriggerStaleSweep(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	_, _, err := storage.BookmarkStorage().Upsert(ctx, &models.Bookmark{URL: "https://example.com", Title: "Example"})
	require.NoError(t, err)

	cfg := testConfig()
	cfg.StaleAfterDays = -1
	svc := NewService(cfg, storage, arbor.NewLogger())

	require.NoError(t, svc.TriggerJob(JobStaleSweep))

	stored, err := storage.BookmarkStorage().GetByURL(ctx, "https://example.com")
	require.NoError(t, err)
	assert.True(t, stored.Stale)
}

func TestTriggerUnknownJob(t *testing.T) {
	svc := NewService(testConfig(), newTestStorage(t), arbor.NewLogger())
	assert.Error(t, svc.TriggerJob("no-such-job"))
}
