package driven

import (
	"context"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

// SchedulerStore keeps scheduled sync and merge tasks across restarts,
// together with a bounded history of their runs.
type SchedulerStore interface {
	// GetTask returns the task, or nil and no error when it is unknown.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// ListTasks returns every task ordered by ID.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask inserts or replaces a task by ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// DeleteTask removes a task and its run history.
	DeleteTask(ctx context.Context, taskID string) error

	// RecordResult appends one run, with its processed and failed counts.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns up to limit runs, newest first.
	// A limit of zero or less returns every run.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps the newest keep runs of each task.
	PruneHistory(ctx context.Context, keep int) error
}
