package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/identity"
)

// syncLibrary imports a bulk library export.
func (s *ReconcileService) syncLibrary(ctx context.Context, b *resultBuilder) {
	loop := pagedSync[domain.LibraryRow]{
		flow:   FlowLibrary,
		limits: s.limits.For(FlowLibrary),
		fetch:  singlePage(s.sources.Library.ReadRows),
		ref: func(r domain.LibraryRow) string {
			return itemRef(fmt.Sprintf("line %d", r.Line), r.Title)
		},
		handle: func(ctx context.Context, r domain.LibraryRow) (domain.Decision, error) {
			if err := validateLibraryRow(r); err != nil {
				return 0, err
			}
			in := libraryIncoming(r)
			return s.reconcile(ctx, &in)
		},
	}
	loop.run(ctx, b)
}

// libraryIncoming maps an export row onto a book.
func libraryIncoming(r domain.LibraryRow) incoming {
	isbn := identity.NormalizeISBN(r.ISBN13)
	if isbn == "" {
		isbn = identity.NormalizeISBN(r.ISBN)
	}

	status := StatusForShelf(r.Shelf)
	rec := domain.Record{
		Type:        domain.RecordTypeBook,
		Title:       r.Title,
		Author:      r.Author,
		ISBN:        isbn,
		Publication: r.Publisher,
		Status:      status,
		Rating:      RatingForStars(r.Rating),
		Format:      FormatForBinding(r.Binding),
		Tags:        identity.NormalizeLabels(r.Bookshelves),
	}
	if status == domain.StatusCompleted && !r.DateRead.IsZero() {
		rec.CompletedAt = r.DateRead
	}
	if r.YearPublished > 0 {
		rec.PublishedAt = time.Date(r.YearPublished, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	return incoming{
		source:     domain.SourceGoodreads,
		externalID: r.BookID,
		create:     true,
		record:     rec,
	}
}
