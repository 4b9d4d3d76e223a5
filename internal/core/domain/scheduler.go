package domain

import (
	"strings"
	"time"
)

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	// TaskID identifies which task was run.
	TaskID string

	// StartedAt is when the task started.
	StartedAt time.Time

	// EndedAt is when the task completed.
	EndedAt time.Time

	// Success indicates whether the task completed without a run-level error.
	// Item-level sync failures do not clear it.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// Processed counts records synced, or records merged away.
	Processed int

	// Failed counts items a sync could not reconcile, or merge groups left
	// unresolved.
	Failed int
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	// Enabled indicates whether this task should run.
	Enabled bool

	// Interval defines how often the task should run.
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// Task ID prefixes for built-in tasks.
const (
	TaskPrefixSync  = "sync:"
	TaskPrefixMerge = "merge:"
)

// SyncTaskID returns the task ID for syncing a source.
func SyncTaskID(source SourceName) string {
	return TaskPrefixSync + string(source)
}

// MergeTaskID returns the task ID for merging a record type.
func MergeTaskID(t RecordType) string {
	return TaskPrefixMerge + string(t)
}

// ParseTaskID splits a task ID into its kind prefix and target.
func ParseTaskID(id string) (prefix, target string, ok bool) {
	for _, p := range []string{TaskPrefixSync, TaskPrefixMerge} {
		if strings.HasPrefix(id, p) {
			return p, strings.TrimPrefix(id, p), true
		}
	}
	return "", "", false
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	cfg := SchedulerConfig{
		Enabled:     true,
		TaskConfigs: make(map[string]TaskConfig),
	}
	for _, source := range SourceNames() {
		cfg.TaskConfigs[SyncTaskID(source)] = TaskConfig{Enabled: true, Interval: 1 * time.Hour}
	}
	for _, t := range []RecordType{RecordTypeArticle, RecordTypeBook} {
		cfg.TaskConfigs[MergeTaskID(t)] = TaskConfig{Enabled: true, Interval: 24 * time.Hour}
	}
	return cfg
}
