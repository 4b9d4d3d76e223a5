package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newArticle(id, key string, created time.Time) *domain.Record {
	return &domain.Record{
		ID:          id,
		Type:        domain.RecordTypeArticle,
		IdentityKey: key,
		Link:        "https://" + key,
		Title:       "Title " + id,
		Status:      domain.StatusUncharted,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

// ==================== RecordStore Tests ====================

func TestRecordStore_RoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	records := store.RecordStore()

	r := &domain.Record{
		ID:              "b1",
		Type:            domain.RecordTypeBook,
		IdentityKey:     "isbn:9780262033848",
		MatchKey:        "introduction to algorithms|cormen",
		ISBN:            "978-0262033848",
		Title:           "Introduction to Algorithms",
		Author:          "Cormen",
		Body:            "notes",
		Fingerprint:     "abc",
		ContentSyncedAt: t0,
		CompletedAt:     t0.Add(24 * time.Hour),
		WordCount:       1200,
		Progress:        42.5,
		Status:          domain.StatusCompleted,
		Rating:          domain.RatingLike,
		Format:          domain.FormatPhysical,
		Starred:         true,
		Tags:            []string{"cs", "classics"},
		CreatedAt:       t0,
		UpdatedAt:       t0,
	}
	r.SetExternalID(domain.SourceGoodreads, "gr-1")
	r.MarkSynced(domain.SourceGoodreads, t0)

	require.NoError(t, records.CreateRecord(ctx, r))

	got, err := records.GetRecord(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, r.Title, got.Title)
	assert.Equal(t, r.ISBN, got.ISBN)
	assert.Equal(t, r.MatchKey, got.MatchKey)
	assert.Equal(t, 1200, got.WordCount)
	assert.InDelta(t, 42.5, got.Progress, 0.001)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, domain.RatingLike, got.Rating)
	assert.Equal(t, domain.FormatPhysical, got.Format)
	assert.True(t, got.Starred)
	assert.False(t, got.Archived)
	assert.Equal(t, []string{"cs", "classics"}, got.Tags)
	assert.Nil(t, got.Topics)
	assert.Equal(t, "gr-1", got.ExternalID(domain.SourceGoodreads))
	assert.True(t, got.SyncedBy.Has(domain.SourceGoodreads))
	assert.True(t, got.CreatedAt.Equal(t0))
	assert.True(t, got.CompletedAt.Equal(t0.Add(24*time.Hour)))
	assert.True(t, got.SourceSyncedAt[domain.SourceGoodreads].Equal(t0))
	assert.True(t, got.PublishedAt.IsZero())
}

func TestRecordStore_GetRecord_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.RecordStore().GetRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_ExternalIDUniqueness(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	records := store.RecordStore()

	first := newArticle("a1", "example.com/a", t0)
	first.SetExternalID(domain.SourceReader, "rd-1")
	require.NoError(t, records.CreateRecord(ctx, first))

	second := newArticle("a2", "example.com/b", t0)
	second.SetExternalID(domain.SourceReader, "rd-1")
	err := records.CreateRecord(ctx, second)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	// The failed insert left nothing behind.
	_, err = records.GetRecord(ctx, "a2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Same identifier on another record type is a different binding.
	book := &domain.Record{ID: "b1", Type: domain.RecordTypeBook, CreatedAt: t0, UpdatedAt: t0}
	book.SetExternalID(domain.SourceReader, "rd-1")
	assert.NoError(t, records.CreateRecord(ctx, book))
}

func TestRecordStore_IdentityKeyNotUnique(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	records := store.RecordStore()

	require.NoError(t, records.CreateRecord(ctx, newArticle("newer", "example.com/a", t0.Add(time.Hour))))
	require.NoError(t, records.CreateRecord(ctx, newArticle("older", "example.com/a", t0)))

	got, err := records.FindByIdentity(ctx, domain.RecordTypeArticle, "", "example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "older", got.ID)

	list, err := records.ListRecords(ctx, domain.RecordTypeArticle)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "older", list[0].ID)
	assert.Equal(t, "newer", list[1].ID)
}

func TestRecordStore_FindByExternalIDAndMatchKey(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	records := store.RecordStore()

	r := &domain.Record{
		ID: "b1", Type: domain.RecordTypeBook, MatchKey: "dune|frank herbert",
		CreatedAt: t0, UpdatedAt: t0,
	}
	r.SetExternalID(domain.SourceReadwise, "rw-9")
	require.NoError(t, records.CreateRecord(ctx, r))

	got, err := records.FindByExternalID(ctx, domain.RecordTypeBook, domain.SourceReadwise, "rw-9")
	require.NoError(t, err)
	assert.Equal(t, "b1", got.ID)

	got, err = records.FindByMatchKey(ctx, domain.RecordTypeBook, "dune|frank herbert")
	require.NoError(t, err)
	assert.Equal(t, "b1", got.ID)

	_, err = records.FindByExternalID(ctx, domain.RecordTypeBook, domain.SourceReader, "rw-9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_UpdateRecord(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	records := store.RecordStore()

	r := newArticle("a1", "example.com/a", t0)
	r.SetExternalID(domain.SourceReader, "rd-1")
	require.NoError(t, records.CreateRecord(ctx, r))

	r.Title = "Renamed"
	r.ExternalIDs[domain.SourceReader] = "rd-2"
	r.SetExternalID(domain.SourceReadwise, "rw-1")
	require.NoError(t, records.UpdateRecord(ctx, r))

	got, err := records.GetRecord(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "rd-2", got.ExternalID(domain.SourceReader))
	assert.Equal(t, "rw-1", got.ExternalID(domain.SourceReadwise))

	_, err = records.FindByExternalID(ctx, domain.RecordTypeArticle, domain.SourceReader, "rd-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, records.UpdateRecord(ctx, newArticle("ghost", "x", t0)), domain.ErrNotFound)
}

func TestRecordStore_Highlights(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	records := store.RecordStore()

	require.NoError(t, records.CreateRecord(ctx, newArticle("a1", "example.com/a", t0)))
	require.NoError(t, records.CreateRecord(ctx, newArticle("a2", "example.com/a", t0.Add(time.Hour))))

	h := &domain.Highlight{
		ID: "h1", ExternalID: "rw-h1", ParentID: "a2", ParentType: domain.RecordTypeArticle,
		Text: "a quote", Tags: []string{"idea"}, HighlightedAt: t0, CreatedAt: t0, UpdatedAt: t0,
	}
	require.NoError(t, records.SaveHighlight(ctx, h))

	// Unlinked highlights are allowed.
	require.NoError(t, records.SaveHighlight(ctx, &domain.Highlight{ID: "h2", ExternalID: "rw-h2", Text: "loose", CreatedAt: t0, UpdatedAt: t0}))

	got, err := records.GetHighlightByExternalID(ctx, "rw-h1")
	require.NoError(t, err)
	assert.Equal(t, "a quote", got.Text)
	assert.Equal(t, []string{"idea"}, got.Tags)

	err = records.DeleteRecord(ctx, "a2")
	assert.ErrorIs(t, err, domain.ErrHasDependents)

	moved, err := records.ReparentHighlights(ctx, "a2", "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	require.NoError(t, records.DeleteRecord(ctx, "a2"))

	list, err := records.ListHighlights(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "h1", list[0].ID)

	orphans, err := records.CountOrphanHighlights(ctx)
	require.NoError(t, err)
	assert.Zero(t, orphans)
}

func TestRecordStore_SaveHighlight_MissingParent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.RecordStore().SaveHighlight(context.Background(), &domain.Highlight{
		ID: "h1", ParentID: "ghost", CreatedAt: t0, UpdatedAt: t0,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_Atomically_Rollback(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	records := store.RecordStore()

	boom := errors.New("boom")
	err := records.Atomically(ctx, func(tx driven.RecordStore) error {
		if err := tx.CreateRecord(ctx, newArticle("a1", "example.com/a", t0)); err != nil {
			return err
		}
		if _, err := tx.GetRecord(ctx, "a1"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = records.GetRecord(ctx, "a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_Atomically_ConflictInsideTransaction(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	records := store.RecordStore()

	first := newArticle("a1", "example.com/a", t0)
	first.SetExternalID(domain.SourceReader, "rd-1")
	require.NoError(t, records.CreateRecord(ctx, first))

	// A constraint failure does not poison the transaction.
	err := records.Atomically(ctx, func(tx driven.RecordStore) error {
		dup := newArticle("a2", "example.com/a", t0)
		dup.SetExternalID(domain.SourceReader, "rd-1")
		if err := tx.CreateRecord(ctx, dup); !errors.Is(err, domain.ErrAlreadyExists) {
			return errors.New("expected conflict")
		}
		existing, err := tx.FindByExternalID(ctx, domain.RecordTypeArticle, domain.SourceReader, "rd-1")
		if err != nil {
			return err
		}
		existing.Title = "updated after conflict"
		return tx.UpdateRecord(ctx, existing)
	})
	require.NoError(t, err)

	got, err := records.GetRecord(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "updated after conflict", got.Title)
}
