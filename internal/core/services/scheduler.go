package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driving"
	"github.com/custodia-labs/shelfsync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler runs the periodic sync and merge tasks.
type Scheduler struct {
	config     domain.SchedulerConfig
	store      driven.SchedulerStore
	reconciler driving.ReconcileService

	mu       sync.Mutex
	running  bool
	inFlight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	reconciler driving.ReconcileService,
) *Scheduler {
	return &Scheduler{
		config:     config,
		store:      store,
		reconciler: reconciler,
		inFlight:   make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// Tasks returns the persisted task state.
func (s *Scheduler) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	return s.store.ListTasks(ctx)
}

// initialiseTasks ensures a task exists for every configured source and
// every merge type with an enabled config.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	var sources []domain.SourceName
	if s.reconciler != nil {
		sources = s.reconciler.ConfiguredSources()
	}
	for _, source := range sources {
		id := domain.SyncTaskID(source)
		if cfg := s.config.GetTaskConfig(id); cfg.Enabled {
			if err := s.ensureTask(ctx, id, "Sync "+string(source), cfg); err != nil {
				return err
			}
		}
	}

	for _, t := range domain.RecordTypes {
		id := domain.MergeTaskID(t)
		if cfg := s.config.GetTaskConfig(id); cfg.Enabled {
			if err := s.ensureTask(ctx, id, "Merge "+string(t)+"s", cfg); err != nil {
				return err
			}
		}
	}

	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now().Add(cfg.Interval),
		}
	} else {
		// Update interval if changed
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// claim marks a task in flight. A task still running from an earlier tick
// is not started again.
func (s *Scheduler) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return false
	}
	s.inFlight[id] = true
	return true
}

func (s *Scheduler) done(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

// runTask executes a single task in the background.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	if !s.claim(task.ID) {
		logger.Debug("scheduler: %s still running", task.ID)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.done(task.ID)

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var err error
		result.Processed, result.Failed, err = s.execute(ctx, task.ID)
		if errors.Is(err, errUnknownTask) {
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.LastError = err.Error()
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}

		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}

		// Keep the last 100 results per task
		if pruneErr := s.store.PruneHistory(ctx, 100); pruneErr != nil {
			logger.Warn("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

var errUnknownTask = fmt.Errorf("%w: unknown task", domain.ErrInvalidInput)

// execute dispatches a task ID to the reconciler and returns the processed
// and failed counts. Item and group failures are counted, not returned.
func (s *Scheduler) execute(ctx context.Context, id string) (int, int, error) {
	prefix, target, ok := domain.ParseTaskID(id)
	if !ok {
		return 0, 0, errUnknownTask
	}
	if s.reconciler == nil {
		return 0, 0, nil
	}

	switch prefix {
	case domain.TaskPrefixSync:
		source, err := domain.ParseSourceName(target)
		if err != nil {
			return 0, 0, errUnknownTask
		}
		res, err := s.reconciler.RunSync(ctx, source, domain.SyncOptions{})
		if err != nil {
			return 0, 0, err
		}
		if res.HasErrors() {
			logger.Warn("scheduler: %s finished with %d errors", id, len(res.Errors))
		}
		return res.Processed(), res.Failed, nil

	case domain.TaskPrefixMerge:
		t, err := domain.ParseRecordType(target)
		if err != nil {
			return 0, 0, errUnknownTask
		}
		res, err := s.reconciler.RunMerge(ctx, t)
		if err != nil {
			return 0, 0, err
		}
		for _, f := range res.Failed {
			logger.Warn("scheduler: %s left %s unresolved: %s", id, f.Key, f.Message)
		}
		return res.MergedCount, len(res.Failed), nil
	}
	return 0, 0, errUnknownTask
}
