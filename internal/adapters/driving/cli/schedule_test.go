package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

func TestScheduleRun_StopsOnCancel(t *testing.T) {
	svc := setupTestServices(t)
	svc.scheduler.startErr = context.Canceled

	out, err := execute("schedule", "run")

	require.NoError(t, err)
	assert.True(t, svc.scheduler.started)
	assert.True(t, svc.scheduler.stopped)
	assert.Contains(t, out, "Scheduler running. Press Ctrl+C to stop.")
	assert.Contains(t, out, "Scheduler stopped.")
}

func TestScheduleRun_Error(t *testing.T) {
	svc := setupTestServices(t)
	svc.scheduler.startErr = errBoom

	_, err := execute("schedule", "run")

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, svc.scheduler.stopped)
}

func TestScheduleRun_Disabled(t *testing.T) {
	svc := setupTestServices(t)
	runtimeConfig.Scheduler.Enabled = false

	_, err := execute("schedule", "run")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler is disabled")
	assert.False(t, svc.scheduler.started)
}

func TestScheduleStatus(t *testing.T) {
	svc := setupTestServices(t)
	last := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	svc.scheduler.tasks = []domain.ScheduledTask{
		{
			ID:        domain.SyncTaskID(domain.SourceReader),
			Interval:  time.Hour,
			LastRun:   last,
			NextRun:   last.Add(time.Hour),
			LastError: "sync reader: unauthorized",
			Enabled:   true,
		},
		{ID: domain.MergeTaskID(domain.RecordTypeBook), Interval: 24 * time.Hour},
	}

	out, err := execute("schedule", "status")

	require.NoError(t, err)
	assert.Contains(t, out, "sync:reader")
	assert.Contains(t, out, "every 1h0m0s")
	assert.Contains(t, out, "last run:  2024-06-01 12:00")
	assert.Contains(t, out, "next run:  2024-06-01 13:00")
	assert.Contains(t, out, "last error: sync reader: unauthorized")
	assert.Contains(t, out, "merge:book")
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, "never")
}

func TestScheduleStatus_Empty(t *testing.T) {
	setupTestServices(t)

	out, err := execute("schedule", "status")

	require.NoError(t, err)
	assert.Contains(t, out, "No scheduled tasks yet")
}

func TestScheduleCmd_NotConfigured(t *testing.T) {
	setupTestServices(t)
	scheduler = nil

	_, err := execute("schedule", "status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler not configured")
}
