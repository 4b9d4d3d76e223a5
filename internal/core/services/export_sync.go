package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/identity"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
)

const exportCategoryBooks = "books"

// syncHighlightExport pages through the highlight export.
func (s *ReconcileService) syncHighlightExport(ctx context.Context, opts domain.SyncOptions, b *resultBuilder) {
	src := s.sources.Export
	loop := pagedSync[domain.ExportHighlight]{
		flow:   FlowExport,
		limits: s.limits.For(FlowExport),
		fetch: func(ctx context.Context, cursor string) (domain.Page[domain.ExportHighlight], error) {
			return src.ExportHighlights(ctx, cursor, opts.UpdatedAfter)
		},
		ref: func(h domain.ExportHighlight) string { return itemRef(h.ID, h.BookTitle) },
		handle: func(ctx context.Context, h domain.ExportHighlight) (domain.Decision, error) {
			if err := validateExportHighlight(h); err != nil {
				return 0, err
			}
			var d domain.Decision
			err := s.store.Atomically(ctx, func(tx driven.RecordStore) error {
				var err error
				d, err = reconcileHighlight(ctx, tx, h, s.now())
				return err
			})
			return d, err
		},
	}
	loop.run(ctx, b)
}

func highlightFingerprint(h domain.ExportHighlight) string {
	return identity.FingerprintParts(h.Text, h.Note, h.Location, h.Color, strconv.FormatBool(h.Favorite))
}

// reconcileHighlight creates or updates one highlight and links it to its
// parent record when one can be found.
func reconcileHighlight(ctx context.Context, tx driven.RecordStore, item domain.ExportHighlight, now time.Time) (domain.Decision, error) {
	fp := highlightFingerprint(item)
	tags := identity.NormalizeLabels(item.Tags)

	h, err := tx.GetHighlightByExternalID(ctx, item.ID)
	if errors.Is(err, domain.ErrNotFound) {
		h = &domain.Highlight{ID: uuid.New().String(), ExternalID: item.ID, CreatedAt: now}
		fillHighlight(h, item, fp, tags)
		if _, err := linkHighlight(ctx, tx, h); err != nil {
			return 0, err
		}
		h.UpdatedAt = now
		if err := tx.SaveHighlight(ctx, h); err != nil {
			return 0, fmt.Errorf("saving highlight: %w", err)
		}
		return domain.DecisionCreated, nil
	}
	if err != nil {
		return 0, fmt.Errorf("looking up highlight: %w", err)
	}

	decision := domain.DecisionUnchanged
	dirty := false
	switch {
	case h.Fingerprint != fp:
		fillHighlight(h, item, fp, tags)
		decision = domain.DecisionUpdated
		dirty = true
	case !identity.LabelsEqual(h.Tags, tags):
		h.Tags = tags
		dirty = true
	}

	if !h.Linked() {
		linked, err := linkHighlight(ctx, tx, h)
		if err != nil {
			return 0, err
		}
		if linked {
			decision = domain.DecisionUpdated
			dirty = true
		}
	}

	if !dirty {
		return decision, nil
	}
	h.UpdatedAt = now
	if err := tx.SaveHighlight(ctx, h); err != nil {
		return 0, fmt.Errorf("saving highlight: %w", err)
	}
	return decision, nil
}

func fillHighlight(h *domain.Highlight, item domain.ExportHighlight, fp string, tags []string) {
	h.Text = item.Text
	h.Note = item.Note
	h.Location = item.Location
	h.Color = item.Color
	h.Favorite = item.Favorite
	h.Tags = tags
	h.HighlightedAt = item.HighlightedAt
	h.SourceUpdatedAt = item.UpdatedAt
	h.SourceURL = item.SourceURL
	h.SourceTitle = item.BookTitle
	h.SourceAuthor = item.BookAuthor
	h.Category = strings.ToLower(item.Category)
	h.Fingerprint = fp
}

// linkHighlight attaches a highlight to a book by title and author, or to an
// article by normalised URL. It reports whether a parent was found.
func linkHighlight(ctx context.Context, tx driven.RecordStore, h *domain.Highlight) (bool, error) {
	var (
		parent *domain.Record
		err    error
	)
	switch {
	case h.Category == exportCategoryBooks:
		key := identity.TitleAuthorKey(h.SourceTitle, h.SourceAuthor)
		if key == "" {
			return false, nil
		}
		parent, err = tx.FindByMatchKey(ctx, domain.RecordTypeBook, key)
	case h.SourceURL != "":
		parent, err = tx.FindByIdentity(ctx, domain.RecordTypeArticle, "", identity.NormalizeURL(h.SourceURL))
	default:
		return false, nil
	}

	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("linking highlight: %w", err)
	}
	h.ParentID = parent.ID
	h.ParentType = parent.Type
	return true, nil
}
