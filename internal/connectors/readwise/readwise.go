// Package readwise adapts the highlighting service's v2 API: the highlight
// export (driven.HighlightExportSource) and the book list
// (driven.BookListSource).
package readwise

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/shelfsync/internal/connectors/apiclient"
	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
)

const (
	// DefaultBaseURL is the public v2 API.
	DefaultBaseURL = "https://readwise.io/api/v2/"

	// DefaultPageSize is the largest page the book list accepts.
	DefaultPageSize = 1000

	bookCategory = "books"
)

// Ensure Client implements the interfaces.
var (
	_ driven.HighlightExportSource = (*Client)(nil)
	_ driven.BookListSource        = (*Client)(nil)
)

// Config holds the settings of the adapter.
type Config struct {
	Token    string
	BaseURL  string
	PageSize int

	// HTTPClient overrides the default client. Used by tests.
	HTTPClient *http.Client

	// Backoff is the wait after a 429 without Retry-After. Zero uses the default.
	Backoff time.Duration
}

// Client reads highlights and books from the highlighting service.
type Client struct {
	api      *apiclient.Client
	pageSize int
}

// New creates a Client. A token is required.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("readwise: %w: token is required", domain.ErrSourceNotConfigured)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}

	var opts []apiclient.Option
	if cfg.HTTPClient != nil {
		opts = append(opts, apiclient.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.Backoff > 0 {
		opts = append(opts, apiclient.WithDefaultBackoff(cfg.Backoff))
	}
	api, err := apiclient.New(baseURL, apiclient.TokenAuthorization(cfg.Token), opts...)
	if err != nil {
		return nil, fmt.Errorf("readwise: %w", err)
	}
	return &Client{api: api, pageSize: pageSize}, nil
}

// ExportHighlights fetches one page of the export and flattens it to
// highlights. Discarded highlights are dropped.
func (c *Client) ExportHighlights(ctx context.Context, cursor string, updatedAfter time.Time) (domain.Page[domain.ExportHighlight], error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("pageCursor", cursor)
	}
	if !updatedAfter.IsZero() {
		query.Set("updatedAfter", updatedAfter.UTC().Format(time.RFC3339))
	}

	var resp exportResponse
	if err := c.api.GetJSON(ctx, "export/", query, &resp); err != nil {
		return domain.Page[domain.ExportHighlight]{}, fmt.Errorf("readwise: export: %w", err)
	}

	var page domain.Page[domain.ExportHighlight]
	if resp.NextPageCursor != nil {
		page.NextCursor = *resp.NextPageCursor
	}
	for _, book := range resp.Results {
		for _, h := range book.Highlights {
			if h.IsDiscard {
				continue
			}
			page.Items = append(page.Items, toExportHighlight(book, h))
		}
	}
	return page, nil
}

// ListBooks fetches one page of the book list. The cursor is the page number.
func (c *Client) ListBooks(ctx context.Context, cursor string) (domain.Page[domain.BookSummary], error) {
	pageNum := 1
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 1 {
			return domain.Page[domain.BookSummary]{}, fmt.Errorf("readwise: %w: book cursor %q", domain.ErrInvalidInput, cursor)
		}
		pageNum = n
	}

	query := url.Values{
		"page":      {strconv.Itoa(pageNum)},
		"page_size": {strconv.Itoa(c.pageSize)},
		"category":  {bookCategory},
	}

	var resp booksResponse
	if err := c.api.GetJSON(ctx, "books/", query, &resp); err != nil {
		return domain.Page[domain.BookSummary]{}, fmt.Errorf("readwise: list books: %w", err)
	}

	page := domain.Page[domain.BookSummary]{
		Items: make([]domain.BookSummary, 0, len(resp.Results)),
	}
	if resp.Next != nil && *resp.Next != "" {
		page.NextCursor = strconv.Itoa(pageNum + 1)
	}
	for _, b := range resp.Results {
		page.Items = append(page.Items, domain.BookSummary{
			ID:            formatID(b.ID),
			Title:         strings.TrimSpace(b.Title),
			Author:        strings.TrimSpace(b.Author),
			Category:      b.Category,
			CoverImageURL: b.CoverImageURL,
			SourceURL:     b.SourceURL,
			NumHighlights: b.NumHighlights,
			UpdatedAt:     b.Updated.Time,
		})
	}
	return page, nil
}

func toExportHighlight(book exportBookDTO, h highlightDTO) domain.ExportHighlight {
	title := book.ReadableTitle
	if title == "" {
		title = book.Title
	}
	sourceURL := book.SourceURL
	if sourceURL == "" {
		sourceURL = book.UniqueURL
	}

	tags := make([]string, 0, len(h.Tags))
	for _, t := range h.Tags {
		tags = append(tags, t.Name)
	}

	return domain.ExportHighlight{
		ID:            formatID(h.ID),
		Text:          h.Text,
		Note:          h.Note,
		Location:      formatLocation(h.Location, h.LocationType),
		Color:         h.Color,
		Favorite:      h.IsFavorite,
		Tags:          tags,
		HighlightedAt: h.HighlightedAt.Time,
		UpdatedAt:     h.Updated.Time,
		BookID:        formatID(book.UserBookID),
		BookTitle:     strings.TrimSpace(title),
		BookAuthor:    strings.TrimSpace(book.Author),
		Category:      book.Category,
		SourceURL:     sourceURL,
	}
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// formatLocation renders "page 12" style locations; the bare number when
// the type is unknown.
func formatLocation(loc *int64, kind string) string {
	if loc == nil {
		return ""
	}
	n := strconv.FormatInt(*loc, 10)
	if kind == "" {
		return n
	}
	return kind + " " + n
}
