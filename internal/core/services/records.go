package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/identity"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driving"
)

// Ensure RecordService implements the interface.
var _ driving.RecordService = (*RecordService)(nil)

// RecordService manages records entered by hand.
type RecordService struct {
	store driven.RecordStore
	now   func() time.Time
}

// NewRecordService creates a record service.
func NewRecordService(store driven.RecordStore) *RecordService {
	return &RecordService{store: store, now: time.Now}
}

// Add stores a record as given. No matching is attempted, so manual entries
// may duplicate synced ones until the next merge.
func (s *RecordService) Add(ctx context.Context, r domain.Record) (*domain.Record, error) {
	r = r.Clone()
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	switch r.Type {
	case domain.RecordTypeArticle:
		if r.Link == "" {
			return nil, fmt.Errorf("%w: articles need a link", domain.ErrInvalidInput)
		}
	case domain.RecordTypeBook:
	case domain.RecordTypeNote:
		if r.Slug == "" || r.Scope == "" {
			return nil, fmt.Errorf("%w: notes need a vault and a slug", domain.ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: record type %q", domain.ErrInvalidInput, r.Type)
	}

	now := s.now()
	r.ID = uuid.New().String()
	if r.Status == "" {
		r.Status = domain.StatusUncharted
	}
	r.Tags = identity.NormalizeLabels(r.Tags)
	r.Topics = identity.NormalizeLabels(r.Topics)
	r.Genres = identity.NormalizeLabels(r.Genres)
	r.Fingerprint = identity.Fingerprint(r.Body)
	if r.Body != "" {
		r.ContentSyncedAt = now
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	identity.Assign(&r)

	if err := s.store.CreateRecord(ctx, &r); err != nil {
		return nil, fmt.Errorf("creating record: %w", err)
	}
	return &r, nil
}

// Get retrieves a record by ID.
func (s *RecordService) Get(ctx context.Context, id string) (*domain.Record, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.store.GetRecord(ctx, id)
}

// List returns all records of a type, oldest first.
func (s *RecordService) List(ctx context.Context, t domain.RecordType) ([]domain.Record, error) {
	if err := checkMergeType(t); err != nil {
		return nil, err
	}
	return s.store.ListRecords(ctx, t)
}

// Delete removes a record. Records with highlights cannot be deleted.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}
	return s.store.DeleteRecord(ctx, id)
}

// Highlights returns the highlights attached to a record.
func (s *RecordService) Highlights(ctx context.Context, id string) ([]domain.Highlight, error) {
	if _, err := s.store.GetRecord(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListHighlights(ctx, id)
}
