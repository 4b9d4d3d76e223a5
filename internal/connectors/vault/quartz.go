package vault

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/custodia-labs/shelfsync/internal/connectors/apiclient"
	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
	"github.com/custodia-labs/shelfsync/internal/logger"
)

const contentIndexPath = "static/contentIndex.json"

// Ensure Quartz implements the interface.
var _ driven.VaultSource = (*Quartz)(nil)

// quartzNote is one entry of contentIndex.json, keyed by slug.
type quartzNote struct {
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	Date        apiclient.Time `json:"date"`
}

// Quartz reads a vault published with Quartz.
type Quartz struct {
	name    string
	baseURL string
	api     *apiclient.Client
}

// NewQuartz creates an adapter for the vault published at baseURL.
// token may be empty for public vaults; see Authorization for its forms.
func NewQuartz(name, baseURL, token string, hc *http.Client) (*Quartz, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("vault: %w: name is required", domain.ErrInvalidInput)
	}
	var opts []apiclient.Option
	if hc != nil {
		opts = append(opts, apiclient.WithHTTPClient(hc))
	}
	api, err := apiclient.New(baseURL, Authorization(token), opts...)
	if err != nil {
		return nil, fmt.Errorf("vault %s: %w", name, err)
	}
	return &Quartz{
		name:    name,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		api:     api,
	}, nil
}

// Name is the vault's scope name.
func (q *Quartz) Name() string {
	return q.name
}

// FetchNotes downloads the content index. A missing index is an empty
// vault; rejected credentials fail the whole fetch.
func (q *Quartz) FetchNotes(ctx context.Context) ([]domain.VaultNote, error) {
	var index map[string]quartzNote
	err := q.api.GetJSON(ctx, contentIndexPath, nil, &index)
	switch {
	case apiclient.IsNotFound(err):
		logger.Warn("vault %s: no content index at %s", q.name, q.baseURL)
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("vault %s: %w", q.name, err)
	}

	slugs := make([]string, 0, len(index))
	for slug := range index {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	notes := make([]domain.VaultNote, 0, len(index))
	for _, slug := range slugs {
		n := index[slug]
		notes = append(notes, domain.VaultNote{
			Slug:        slug,
			Vault:       q.name,
			Title:       strings.TrimSpace(n.Title),
			Content:     n.Content,
			Description: n.Description,
			SourceURL:   q.baseURL + "/" + strings.TrimLeft(slug, "/"),
			Tags:        n.Tags,
			Date:        n.Date.Time,
		})
	}
	return notes, nil
}

// Authorization turns a configured vault token into an Authorization header:
// "user:pass" is sent as Basic, "Basic …" and "Bearer …" pass through and
// anything else is a bearer token.
func Authorization(token string) string {
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return ""
	case hasPrefixFold(token, "Basic "):
		return "Basic " + strings.TrimSpace(token[len("Basic "):])
	case hasPrefixFold(token, "Bearer "):
		return "Bearer " + strings.TrimSpace(token[len("Bearer "):])
	case strings.Contains(token, ":"):
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(token))
	default:
		return "Bearer " + token
	}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
