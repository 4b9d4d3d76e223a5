package readwise

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

const exportPage = `{
  "count": 1,
  "nextPageCursor": "next-1",
  "results": [
    {
      "user_book_id": 42,
      "title": "raw title",
      "readable_title": "Readable Title",
      "author": "Ada",
      "category": "articles",
      "source_url": "",
      "unique_url": "https://example.com/a",
      "highlights": [
        {
          "id": 1001,
          "text": "first",
          "note": "n",
          "location": 12,
          "location_type": "page",
          "color": "yellow",
          "highlighted_at": "2024-05-01T09:00:00Z",
          "updated": "2024-05-02T09:00:00Z",
          "tags": [{"id": 1, "name": "Go"}],
          "is_favorite": true
        },
        {"id": 1002, "text": "discarded", "is_discard": true},
        {"id": 1003, "text": "no location", "location": null}
      ]
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{Token: "tok", BaseURL: srv.URL + "/api/v2/", Backoff: time.Millisecond})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(Config{Token: "  "})
	assert.ErrorIs(t, err, domain.ErrSourceNotConfigured)
}

func TestExportHighlights(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/export/", r.URL.Path)
		assert.Equal(t, "Token tok", r.Header.Get("Authorization"))
		assert.Equal(t, "c0", r.URL.Query().Get("pageCursor"))
		assert.Equal(t, "2024-04-01T00:00:00Z", r.URL.Query().Get("updatedAfter"))
		_, _ = w.Write([]byte(exportPage))
	})

	page, err := c.ExportHighlights(context.Background(), "c0", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "next-1", page.NextCursor)
	require.Len(t, page.Items, 2)

	h := page.Items[0]
	assert.Equal(t, "1001", h.ID)
	assert.Equal(t, "page 12", h.Location)
	assert.True(t, h.Favorite)
	assert.Equal(t, []string{"Go"}, h.Tags)
	assert.Equal(t, "42", h.BookID)
	assert.Equal(t, "Readable Title", h.BookTitle)
	assert.Equal(t, "https://example.com/a", h.SourceURL)
	assert.Equal(t, "articles", h.Category)
	assert.True(t, h.UpdatedAt.Equal(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)))

	assert.Equal(t, "1003", page.Items[1].ID)
	assert.Empty(t, page.Items[1].Location)
}

func TestExportHighlights_FirstPageHasNoCursor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasCursor := r.URL.Query()["pageCursor"]
		assert.False(t, hasCursor)
		_, hasSince := r.URL.Query()["updatedAfter"]
		assert.False(t, hasSince)
		_, _ = w.Write([]byte(`{"count":0,"nextPageCursor":null,"results":[]}`))
	})

	page, err := c.ExportHighlights(context.Background(), "", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor)
	assert.Empty(t, page.Items)
}

func TestListBooks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/books/", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "1000", r.URL.Query().Get("page_size"))
		assert.Equal(t, "books", r.URL.Query().Get("category"))
		_, _ = w.Write([]byte(`{
		  "count": 3,
		  "next": "https://readwise.io/api/v2/books/?page=3",
		  "results": [{"id": 7, "title": " Dune ", "author": "Frank Herbert", "category": "books",
		    "cover_image_url": "https://img/dune.jpg", "num_highlights": 4, "updated": "2024-05-01T09:00:00Z"}]
		}`))
	})

	page, err := c.ListBooks(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "3", page.NextCursor)
	require.Len(t, page.Items, 1)

	b := page.Items[0]
	assert.Equal(t, "7", b.ID)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, "https://img/dune.jpg", b.CoverImageURL)
	assert.Equal(t, 4, b.NumHighlights)
}

func TestListBooks_LastPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{"count":0,"next":null,"results":[]}`))
	})

	page, err := c.ListBooks(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor)
}

func TestListBooks_BadCursor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.ListBooks(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListBooks_RateLimitedThenOK(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"count":0,"next":null,"results":[]}`))
	})

	_, err := c.ListBooks(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
