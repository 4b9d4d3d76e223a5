package driving

import (
	"context"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

// RecordService manages canonical records outside of sync.
type RecordService interface {
	// Add stores a manually entered record without matching it first.
	Add(ctx context.Context, r domain.Record) (*domain.Record, error)

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*domain.Record, error)

	// List returns all records of a type.
	List(ctx context.Context, t domain.RecordType) ([]domain.Record, error)

	// Delete removes a record that has no highlights.
	Delete(ctx context.Context, id string) error

	// Highlights returns the highlights attached to a record.
	Highlights(ctx context.Context, id string) ([]domain.Highlight, error)
}
