package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

func TestDuplicatesPreview_Groups(t *testing.T) {
	svc := setupTestServices(t)
	older := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(0, 1, 0)

	var synced domain.Record
	synced.ID = "rec-2"
	synced.Type = domain.RecordTypeArticle
	synced.Title = "Designing Data Pipelines"
	synced.Body = "full text"
	synced.CreatedAt = newer
	synced.SetExternalID(domain.SourceReader, "r-1")
	synced.MarkSynced(domain.SourceReader, newer)

	svc.reconcile.groups = []domain.DuplicateGroup{{
		Type: domain.RecordTypeArticle,
		Key:  "https://example.com/pipelines",
		Members: []domain.Record{
			{ID: "rec-1", Type: domain.RecordTypeArticle, Title: "Designing Data Pipelines", CreatedAt: older},
			synced,
		},
	}}

	out, err := execute("duplicates", "preview", "articles")

	require.NoError(t, err)
	assert.Equal(t, domain.RecordTypeArticle, svc.reconcile.lastType)
	assert.Contains(t, out, "1 duplicate article groups:")
	assert.Contains(t, out, "https://example.com/pipelines")
	assert.Contains(t, out, "  * rec-2")
	assert.Contains(t, out, "    rec-1")
	assert.Contains(t, out, "synced by reader")
	assert.Contains(t, out, "synced by none")
	assert.Contains(t, out, "created 2023-01-02")
	assert.Contains(t, out, "primary chosen by: fully-synced")
}

func TestDuplicatesPreview_OldestWins(t *testing.T) {
	svc := setupTestServices(t)
	older := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	svc.reconcile.groups = []domain.DuplicateGroup{{
		Type: domain.RecordTypeBook,
		Key:  "9780000000000",
		Members: []domain.Record{
			{ID: "book-1", Type: domain.RecordTypeBook, Title: "Dune", CreatedAt: older},
			{ID: "book-2", Type: domain.RecordTypeBook, Title: "Dune", CreatedAt: older.Add(time.Hour)},
		},
	}}

	out, err := execute("duplicates", "preview", "book")

	require.NoError(t, err)
	assert.Contains(t, out, "  * book-1")
	assert.Contains(t, out, "primary chosen by: oldest")
}

func TestDuplicatesPreview_None(t *testing.T) {
	setupTestServices(t)

	out, err := execute("duplicates", "preview", "note")

	require.NoError(t, err)
	assert.Contains(t, out, "No duplicate notes found.")
}

func TestDuplicatesPreview_UnknownType(t *testing.T) {
	setupTestServices(t)

	_, err := execute("duplicates", "preview", "podcast")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDuplicatesMerge(t *testing.T) {
	svc := setupTestServices(t)
	svc.reconcile.merge = domain.MergeResult{
		Type:        domain.RecordTypeBook,
		MergedCount: 3,
		GroupCount:  2,
		Groups: []domain.MergedGroup{
			{PrimaryID: "b1", DuplicateIDs: []string{"b2", "b3"}, Key: "dune|frank herbert", Reparented: 4},
			{PrimaryID: "b4", DuplicateIDs: []string{"b5"}, Key: "9780000000000"},
		},
		Failed: []domain.MergeFailure{{Key: "emma|jane austen", Message: "no primary"}},
	}

	out, err := execute("duplicates", "merge", "books")

	require.NoError(t, err)
	assert.Equal(t, domain.RecordTypeBook, svc.reconcile.lastType)
	assert.Contains(t, out, "dune|frank herbert: kept b1, merged b2, b3 (4 highlights moved)")
	assert.Contains(t, out, "9780000000000: kept b4, merged b5\n")
	assert.Contains(t, out, "  ! emma|jane austen: no primary")
	assert.Contains(t, out, "Merged 3 records in 2 groups.")
	assert.NotContains(t, out, "Warning")
}

func TestDuplicatesMerge_WarnsAboutOrphanedHighlights(t *testing.T) {
	svc := setupTestServices(t)
	svc.reconcile.merge = domain.MergeResult{Type: domain.RecordTypeArticle, OrphanHighlights: 2}

	out, err := execute("duplicates", "merge", "article")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning: 2 highlights point at missing records.")
}

func TestDuplicatesMerge_Error(t *testing.T) {
	svc := setupTestServices(t)
	svc.reconcile.mergeErr = errBoom

	_, err := execute("duplicates", "merge", "article")

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "merge failed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "ééé…", truncate("éééééé", 4))
}
