package memory

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

func article(id, key string, created time.Time) *domain.Record {
	return &domain.Record{
		ID:          id,
		Type:        domain.RecordTypeArticle,
		IdentityKey: key,
		Title:       "Title " + id,
		CreatedAt:   created,
	}
}

func TestRecordStore_CreateAndGet(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	r := article("a1", "example.com/post", t0)
	r.SetExternalID(domain.SourceReader, "rd-1")
	require.NoError(t, store.CreateRecord(ctx, r))

	got, err := store.GetRecord(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Title a1", got.Title)

	// Stored copies are isolated from the caller.
	r.ExternalIDs[domain.SourceReader] = "changed"
	got, err = store.GetRecord(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "rd-1", got.ExternalID(domain.SourceReader))
}

func TestRecordStore_GetRecord_NotFound(t *testing.T) {
	store := NewRecordStore()
	_, err := store.GetRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_CreateRecord_Duplicates(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	first := article("a1", "k", t0)
	first.SetExternalID(domain.SourceReader, "rd-1")
	require.NoError(t, store.CreateRecord(ctx, first))

	t.Run("same id", func(t *testing.T) {
		err := store.CreateRecord(ctx, article("a1", "other", t0))
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("same external id", func(t *testing.T) {
		r := article("a2", "other", t0)
		r.SetExternalID(domain.SourceReader, "rd-1")
		assert.ErrorIs(t, store.CreateRecord(ctx, r), domain.ErrAlreadyExists)
	})

	t.Run("same identity key is allowed", func(t *testing.T) {
		assert.NoError(t, store.CreateRecord(ctx, article("a3", "k", t0.Add(time.Hour))))
	})
}

func TestRecordStore_FindByExternalID(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	r := article("a1", "k", t0)
	r.SetExternalID(domain.SourceReader, "rd-1")
	require.NoError(t, store.CreateRecord(ctx, r))

	got, err := store.FindByExternalID(ctx, domain.RecordTypeArticle, domain.SourceReader, "rd-1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	_, err = store.FindByExternalID(ctx, domain.RecordTypeBook, domain.SourceReader, "rd-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_FindByIdentity_ReturnsOldest(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRecord(ctx, article("newer", "k", t0.Add(time.Hour))))
	require.NoError(t, store.CreateRecord(ctx, article("older", "k", t0)))

	got, err := store.FindByIdentity(ctx, domain.RecordTypeArticle, "", "k")
	require.NoError(t, err)
	assert.Equal(t, "older", got.ID)

	_, err = store.FindByIdentity(ctx, domain.RecordTypeArticle, "vault", "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_UpdateRecord_MovesExternalIndex(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	r := article("a1", "k", t0)
	r.SetExternalID(domain.SourceReader, "rd-1")
	require.NoError(t, store.CreateRecord(ctx, r))

	r.ExternalIDs[domain.SourceReader] = "rd-2"
	require.NoError(t, store.UpdateRecord(ctx, r))

	_, err := store.FindByExternalID(ctx, domain.RecordTypeArticle, domain.SourceReader, "rd-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	got, err := store.FindByExternalID(ctx, domain.RecordTypeArticle, domain.SourceReader, "rd-2")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	assert.ErrorIs(t, store.UpdateRecord(ctx, article("missing", "k", t0)), domain.ErrNotFound)
}

func TestRecordStore_DeleteRecord_WithHighlights(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRecord(ctx, article("a1", "k", t0)))
	require.NoError(t, store.SaveHighlight(ctx, &domain.Highlight{ID: "h1", ExternalID: "x1", ParentID: "a1", Text: "quote"}))

	err := store.DeleteRecord(ctx, "a1")
	assert.ErrorIs(t, err, domain.ErrHasDependents)

	require.NoError(t, store.CreateRecord(ctx, article("a2", "k", t0)))
	moved, err := store.ReparentHighlights(ctx, "a1", "a2")
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	require.NoError(t, store.DeleteRecord(ctx, "a1"))
	orphans, err := store.CountOrphanHighlights(ctx)
	require.NoError(t, err)
	assert.Zero(t, orphans)
}

func TestRecordStore_SaveHighlight_MissingParent(t *testing.T) {
	store := NewRecordStore()
	err := store.SaveHighlight(context.Background(), &domain.Highlight{ID: "h1", ParentID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_ListRecords_Ordered(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRecord(ctx, article("c", "k3", t0.Add(2*time.Hour))))
	require.NoError(t, store.CreateRecord(ctx, article("a", "k1", t0)))
	require.NoError(t, store.CreateRecord(ctx, article("b", "k2", t0.Add(time.Hour))))
	require.NoError(t, store.CreateRecord(ctx, &domain.Record{ID: "book", Type: domain.RecordTypeBook, CreatedAt: t0}))

	list, err := store.ListRecords(ctx, domain.RecordTypeArticle)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestRecordStore_Atomically_Commit(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	err := store.Atomically(ctx, func(tx driven.RecordStore) error {
		return tx.CreateRecord(ctx, article("a1", "k", t0))
	})
	require.NoError(t, err)

	_, err = store.GetRecord(ctx, "a1")
	assert.NoError(t, err)
}

func TestRecordStore_Atomically_Rollback(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()
	require.NoError(t, store.CreateRecord(ctx, article("keep", "k", t0)))

	boom := errors.New("boom")
	err := store.Atomically(ctx, func(tx driven.RecordStore) error {
		require.NoError(t, tx.CreateRecord(ctx, article("a1", "k", t0)))
		require.NoError(t, tx.DeleteRecord(ctx, "keep"))

		// Nested calls share the transaction.
		return tx.Atomically(ctx, func(inner driven.RecordStore) error {
			_, err := inner.GetRecord(ctx, "a1")
			require.NoError(t, err)
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetRecord(ctx, "a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetRecord(ctx, "keep")
	assert.NoError(t, err)
}
