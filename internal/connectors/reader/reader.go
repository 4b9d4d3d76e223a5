package reader

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/custodia-labs/shelfsync/internal/connectors/apiclient"
	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
)

// DefaultBaseURL is the public v3 API.
const DefaultBaseURL = "https://readwise.io/api/v3/"

// Locations a document can be filed under.
var locations = map[string]struct{}{
	"new":       {},
	"later":     {},
	"shortlist": {},
	"archive":   {},
	"feed":      {},
}

// Ensure Client implements the interface.
var _ driven.ReaderSource = (*Client)(nil)

// Config holds the settings of the adapter.
type Config struct {
	Token   string
	BaseURL string

	// HTTPClient overrides the default client. Used by tests.
	HTTPClient *http.Client

	// Backoff is the wait after a 429 without Retry-After. Zero uses the default.
	Backoff time.Duration
}

// Client lists documents from the read-it-later service.
type Client struct {
	api       *apiclient.Client
	sanitizer *bluemonday.Policy
	markdown  *converter.Converter
}

// New creates a Client. A token is required.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("reader: %w: token is required", domain.ErrSourceNotConfigured)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	opts := []apiclient.Option{}
	if cfg.HTTPClient != nil {
		opts = append(opts, apiclient.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.Backoff > 0 {
		opts = append(opts, apiclient.WithDefaultBackoff(cfg.Backoff))
	}
	api, err := apiclient.New(baseURL, apiclient.TokenAuthorization(cfg.Token), opts...)
	if err != nil {
		return nil, fmt.Errorf("reader: %w", err)
	}

	return &Client{
		api:       api,
		sanitizer: bluemonday.UGCPolicy(),
		markdown: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}, nil
}

// ListDocuments fetches one page of documents. opts.Scope filters by
// location; opts.UpdatedAfter limits the page to recently changed documents.
func (c *Client) ListDocuments(ctx context.Context, cursor string, opts domain.SyncOptions) (domain.Page[domain.ReaderDocument], error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("pageCursor", cursor)
	}
	if !opts.UpdatedAfter.IsZero() {
		query.Set("updatedAfter", opts.UpdatedAfter.UTC().Format(time.RFC3339))
	}
	if scope := strings.ToLower(strings.TrimSpace(opts.Scope)); scope != "" {
		if _, ok := locations[scope]; !ok {
			return domain.Page[domain.ReaderDocument]{}, fmt.Errorf("reader: %w: unknown location %q", domain.ErrInvalidInput, opts.Scope)
		}
		query.Set("location", scope)
	}

	var resp listResponse
	if err := c.api.GetJSON(ctx, "list/", query, &resp); err != nil {
		return domain.Page[domain.ReaderDocument]{}, fmt.Errorf("reader: list documents: %w", err)
	}

	page := domain.Page[domain.ReaderDocument]{
		Items: make([]domain.ReaderDocument, 0, len(resp.Results)),
	}
	if resp.NextPageCursor != nil {
		page.NextCursor = *resp.NextPageCursor
	}
	for _, dto := range resp.Results {
		doc := toDomain(dto)
		if dto.HTMLContent != "" {
			doc.Content = c.toMarkdown(dto.HTMLContent, dto.URL)
		}
		page.Items = append(page.Items, doc)
	}
	return page, nil
}

// FetchContent retrieves the body of one document as markdown.
func (c *Client) FetchContent(ctx context.Context, id string) (string, error) {
	query := url.Values{
		"id":              {id},
		"withHtmlContent": {"true"},
	}

	var resp listResponse
	if err := c.api.GetJSON(ctx, "list/", query, &resp); err != nil {
		return "", fmt.Errorf("reader: fetch content %s: %w", id, err)
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("reader: document %s: %w", id, domain.ErrNotFound)
	}

	doc := resp.Results[0]
	return c.toMarkdown(doc.HTMLContent, doc.URL), nil
}

// toMarkdown sanitises HTML and converts it to markdown. When conversion
// fails the sanitised HTML is returned as is.
func (c *Client) toMarkdown(html, sourceURL string) string {
	clean := c.sanitizer.Sanitize(html)
	if strings.TrimSpace(clean) == "" {
		return ""
	}
	md, err := c.markdown.ConvertString(clean, converter.WithDomain(sourceURL))
	if err != nil || strings.TrimSpace(md) == "" {
		return strings.TrimSpace(clean)
	}
	return strings.TrimSpace(md)
}

func toDomain(dto documentDTO) domain.ReaderDocument {
	location := strings.ToLower(dto.Location)
	return domain.ReaderDocument{
		ID:              dto.ID,
		URL:             dto.URL,
		SourceURL:       dto.SourceURL,
		Title:           strings.TrimSpace(dto.Title),
		Author:          strings.TrimSpace(dto.Author),
		SiteName:        dto.SiteName,
		Summary:         dto.Summary,
		ImageURL:        dto.ImageURL,
		Category:        dto.Category,
		Location:        location,
		Starred:         location == "shortlist",
		WordCount:       dto.WordCount,
		ReadingProgress: dto.ReadingProgress,
		Tags:            []string(dto.Tags),
		PublishedDate:   dto.PublishedDate.Time,
		UpdatedAt:       dto.UpdatedAt.Time,
	}
}
