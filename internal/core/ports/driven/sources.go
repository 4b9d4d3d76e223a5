package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

// Source adapters are black boxes returning paginated DTOs. Timeouts and
// transport errors are returned as errors; the core treats them as page or
// item failures.

// ReaderSource lists documents from the read-it-later service.
type ReaderSource interface {
	// ListDocuments fetches one page. An empty cursor starts from the first page.
	ListDocuments(ctx context.Context, cursor string, opts domain.SyncOptions) (domain.Page[domain.ReaderDocument], error)

	// FetchContent retrieves the full body of a document as markdown.
	FetchContent(ctx context.Context, id string) (string, error)
}

// HighlightExportSource pages through the highlight export.
type HighlightExportSource interface {
	// ExportHighlights fetches one page of highlights updated after the given time.
	ExportHighlights(ctx context.Context, cursor string, updatedAfter time.Time) (domain.Page[domain.ExportHighlight], error)
}

// BookListSource pages through the books known to the highlighting service.
type BookListSource interface {
	// ListBooks fetches one page. An empty cursor starts from the first page.
	ListBooks(ctx context.Context, cursor string) (domain.Page[domain.BookSummary], error)
}

// VaultSource reads the notes published in one vault.
type VaultSource interface {
	// Name is the vault's scope name.
	Name() string

	// FetchNotes returns every note in the vault.
	FetchNotes(ctx context.Context) ([]domain.VaultNote, error)
}

// LibrarySource reads a bulk library export.
type LibrarySource interface {
	// ReadRows returns every row of the export, malformed rows included.
	ReadRows(ctx context.Context) ([]domain.LibraryRow, error)
}

// Sources bundles the configured adapters. Nil fields are unconfigured.
type Sources struct {
	Reader  ReaderSource
	Export  HighlightExportSource
	Books   BookListSource
	Vaults  []VaultSource
	Library LibrarySource
}
