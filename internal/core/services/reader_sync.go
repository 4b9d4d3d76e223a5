package services

import (
	"context"
	"errors"
	"strings"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/identity"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
	"github.com/custodia-labs/shelfsync/internal/logger"
)

const readerCategoryArticle = "article"

// syncReader pages through the read-it-later service.
func (s *ReconcileService) syncReader(ctx context.Context, opts domain.SyncOptions, b *resultBuilder) {
	src := s.sources.Reader
	limits := s.limits.For(FlowReader)
	enrich := newPacer(limits.ItemDelay)

	loop := pagedSync[domain.ReaderDocument]{
		flow:   FlowReader,
		limits: limits,
		fetch: func(ctx context.Context, cursor string) (domain.Page[domain.ReaderDocument], error) {
			return src.ListDocuments(ctx, cursor, opts)
		},
		ref: func(d domain.ReaderDocument) string { return itemRef(d.ID, d.Title) },
		handle: func(ctx context.Context, d domain.ReaderDocument) (domain.Decision, error) {
			if err := validateReaderDocument(d); err != nil {
				return 0, err
			}
			if d.Category != "" && d.Category != readerCategoryArticle {
				return domain.DecisionSkipped, nil
			}
			in := readerIncoming(d)
			if in.record.Body == "" {
				s.enrichReaderContent(ctx, src, enrich, &in)
			}
			return s.reconcile(ctx, &in)
		},
	}
	loop.run(ctx, b)
}

// readerIncoming maps a read-it-later document onto an article.
func readerIncoming(d domain.ReaderDocument) incoming {
	location := strings.ToLower(strings.TrimSpace(d.Location))
	link := d.SourceURL
	if link == "" {
		link = d.URL
	}
	return incoming{
		source:     domain.SourceReader,
		externalID: d.ID,
		create:     true,
		record: domain.Record{
			Type:        domain.RecordTypeArticle,
			Link:        link,
			Title:       d.Title,
			Author:      d.Author,
			Publication: d.SiteName,
			Description: d.Summary,
			Thumbnail:   d.ImageURL,
			Body:        d.Content,
			WordCount:   d.WordCount,
			Progress:    d.ReadingProgress * 100,
			Location:    location,
			Archived:    location == "archive",
			Starred:     d.Starred,
			Status:      StatusForReaderLocation(location),
			PublishedAt: d.PublishedDate,
			Tags:        identity.NormalizeLabels(d.Tags),
		},
	}
}

// enrichReaderContent fetches the body of a document that the local store
// does not have content for yet. Failures leave the item without a body.
func (s *ReconcileService) enrichReaderContent(ctx context.Context, src driven.ReaderSource, pace *pacer, in *incoming) {
	existing, err := lookupRecord(ctx, s.store, in)
	switch {
	case err == nil && existing.HasBody():
		return
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		logger.Warn("reader: lookup before content fetch for %s: %v", in.externalID, err)
		return
	}

	if err := pace.Wait(ctx); err != nil {
		return
	}
	content, err := src.FetchContent(ctx, in.externalID)
	if err != nil {
		logger.Warn("reader: fetching content for %s: %v", in.externalID, err)
		return
	}
	in.record.Body = content
}
