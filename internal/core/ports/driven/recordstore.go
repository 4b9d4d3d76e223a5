package driven

import (
	"context"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

// RecordStore is the transactional record repository.
// Lookups return domain.ErrNotFound when nothing matches.
type RecordStore interface {
	// GetRecord retrieves a record by local ID.
	GetRecord(ctx context.Context, id string) (*domain.Record, error)

	// FindByExternalID retrieves the record bound to a (source, external id) pair.
	FindByExternalID(ctx context.Context, t domain.RecordType, source domain.SourceName, externalID string) (*domain.Record, error)

	// FindByIdentity retrieves the oldest record with the given identity key in a scope.
	FindByIdentity(ctx context.Context, t domain.RecordType, scope, key string) (*domain.Record, error)

	// FindByMatchKey retrieves the oldest record with the given secondary key.
	FindByMatchKey(ctx context.Context, t domain.RecordType, key string) (*domain.Record, error)

	// ListRecords returns all records of a type ordered by creation time.
	ListRecords(ctx context.Context, t domain.RecordType) ([]domain.Record, error)

	// CreateRecord inserts a new record.
	// Returns domain.ErrAlreadyExists when the ID or an external id pair is taken.
	CreateRecord(ctx context.Context, r *domain.Record) error

	// UpdateRecord replaces a stored record.
	// Returns domain.ErrAlreadyExists when an external id pair belongs to another record.
	UpdateRecord(ctx context.Context, r *domain.Record) error

	// DeleteRecord removes a record.
	// Returns domain.ErrHasDependents while highlights still reference it.
	DeleteRecord(ctx context.Context, id string) error

	// Highlights.

	// GetHighlightByExternalID retrieves a highlight by its source identifier.
	GetHighlightByExternalID(ctx context.Context, externalID string) (*domain.Highlight, error)

	// SaveHighlight creates or updates a highlight.
	// Returns domain.ErrNotFound when ParentID names a missing record.
	SaveHighlight(ctx context.Context, h *domain.Highlight) error

	// ListHighlights returns the highlights attached to a record.
	ListHighlights(ctx context.Context, parentID string) ([]domain.Highlight, error)

	// ReparentHighlights moves every highlight of one record to another and
	// returns how many moved.
	ReparentHighlights(ctx context.Context, fromID, toID string) (int, error)

	// CountOrphanHighlights counts highlights whose parent does not exist.
	CountOrphanHighlights(ctx context.Context) (int, error)

	// Atomically runs fn against a transactional view of the store.
	// All writes made through the view commit together, or not at all when fn
	// returns an error. Calling Atomically on a view runs fn in the same transaction.
	Atomically(ctx context.Context, fn func(tx RecordStore) error) error
}
