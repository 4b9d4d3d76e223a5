package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

func TestFindDuplicates_GroupsURLVariants(t *testing.T) {
	records := []domain.Record{
		{ID: "b", Type: domain.RecordTypeArticle, Link: "https://www.example.com/post", CreatedAt: t0.Add(time.Hour)},
		{ID: "a", Type: domain.RecordTypeArticle, Link: "http://Example.com/post/", CreatedAt: t0},
		{ID: "c", Type: domain.RecordTypeArticle, Link: "https://example.com/other", CreatedAt: t0},
		{ID: "d", Type: domain.RecordTypeArticle, Link: "", CreatedAt: t0},
		{ID: "e", Type: domain.RecordTypeArticle, Link: "", CreatedAt: t0},
	}

	groups := FindDuplicates(records)
	require.Len(t, groups, 1)
	assert.Equal(t, "https://example.com/post", groups[0].Key)
	require.Len(t, groups[0].Members, 2)
	assert.Equal(t, "a", groups[0].Members[0].ID, "oldest first")
	assert.Equal(t, "b", groups[0].Members[1].ID)
}

func TestFindDuplicates_NotesAreScoped(t *testing.T) {
	records := []domain.Record{
		{ID: "1", Type: domain.RecordTypeNote, Scope: "garden", Slug: "ideas/x", CreatedAt: t0},
		{ID: "2", Type: domain.RecordTypeNote, Scope: "work", Slug: "ideas/x", CreatedAt: t0},
		{ID: "3", Type: domain.RecordTypeNote, Scope: "garden", Slug: "/Ideas/X/", CreatedAt: t0.Add(time.Minute)},
	}

	groups := FindDuplicates(records)
	require.Len(t, groups, 1)
	assert.Equal(t, "garden", groups[0].Scope)
	assert.Len(t, groups[0].Members, 2)
}

func TestFindDuplicates_BooksByISBNThenTitle(t *testing.T) {
	records := []domain.Record{
		{ID: "1", Type: domain.RecordTypeBook, ISBN: "978-0-00-000000-0", Title: "X", CreatedAt: t0},
		{ID: "2", Type: domain.RecordTypeBook, ISBN: "9780000000000", Title: "Y", CreatedAt: t0},
		{ID: "3", Type: domain.RecordTypeBook, Title: "Dune", Author: "Frank Herbert", CreatedAt: t0},
		{ID: "4", Type: domain.RecordTypeBook, Title: "dune ", Author: "frank  herbert", CreatedAt: t0},
	}

	groups := FindDuplicates(records)
	require.Len(t, groups, 2)
	keys := []string{groups[0].Key, groups[1].Key}
	assert.ElementsMatch(t, []string{"isbn:9780000000000", "title:dune|frank herbert"}, keys)
}

func TestFindDuplicates_DoesNotModifyInput(t *testing.T) {
	records := []domain.Record{
		{ID: "b", Type: domain.RecordTypeArticle, Link: "https://example.com/a", CreatedAt: t0.Add(time.Hour), Tags: []string{"x"}},
		{ID: "a", Type: domain.RecordTypeArticle, Link: "https://example.com/a", CreatedAt: t0},
	}

	groups := FindDuplicates(records)
	require.Len(t, groups, 1)
	groups[0].Members[1].Tags[0] = "changed"

	assert.Equal(t, "b", records[0].ID)
	assert.Equal(t, "x", records[0].Tags[0])
}
