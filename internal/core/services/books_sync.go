package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

// syncBookList links the highlighting service's books to local books.
// Books are never created here; unmatched books are skipped.
func (s *ReconcileService) syncBookList(ctx context.Context, b *resultBuilder) {
	src := s.sources.Books
	loop := pagedSync[domain.BookSummary]{
		flow:   FlowBooks,
		limits: s.limits.For(FlowBooks),
		fetch:  src.ListBooks,
		ref:    func(book domain.BookSummary) string { return itemRef(book.ID, book.Title) },
		handle: func(ctx context.Context, book domain.BookSummary) (domain.Decision, error) {
			if err := validateBookSummary(book); err != nil {
				return 0, err
			}
			if c := strings.ToLower(book.Category); c != "" && c != exportCategoryBooks {
				return domain.DecisionSkipped, nil
			}
			in := incoming{
				source:     domain.SourceReadwise,
				externalID: book.ID,
				record: domain.Record{
					Type:      domain.RecordTypeBook,
					Title:     book.Title,
					Author:    book.Author,
					Thumbnail: book.CoverImageURL,
					Link:      book.SourceURL,
				},
			}
			return s.reconcile(ctx, &in)
		},
	}
	loop.run(ctx, b)
}
