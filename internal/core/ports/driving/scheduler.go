package driving

import (
	"context"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

// Scheduler runs periodic sync and merge tasks.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// Tasks returns the persisted task state.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)
}
