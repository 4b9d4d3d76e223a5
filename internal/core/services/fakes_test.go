package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/shelfsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// fastLimits keeps the production page limits without any pacing.
func fastLimits() Limits {
	l := DefaultLimits()
	for flow, lim := range l {
		lim.PageDelay = 0
		lim.ItemDelay = 0
		l[flow] = lim
	}
	return l
}

// testClock is a settable clock for services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService(sources driven.Sources) (*ReconcileService, *memory.RecordStore, *testClock) {
	store := memory.NewRecordStore()
	clock := &testClock{now: t0}
	svc := NewReconcileService(store, sources, fastLimits())
	svc.now = clock.Now
	return svc, store, clock
}

// ==================== Source fakes ====================

type fakeReader struct {
	mu       sync.Mutex
	pages    map[string]domain.Page[domain.ReaderDocument]
	errs     map[string]error
	content  map[string]string
	fetched  []string
	listSeen []string
}

func newFakeReader(docs ...domain.ReaderDocument) *fakeReader {
	return &fakeReader{
		pages:   map[string]domain.Page[domain.ReaderDocument]{"": {Items: docs}},
		errs:    map[string]error{},
		content: map[string]string{},
	}
}

func (f *fakeReader) setDocs(docs ...domain.ReaderDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = map[string]domain.Page[domain.ReaderDocument]{"": {Items: docs}}
}

func (f *fakeReader) ListDocuments(_ context.Context, cursor string, _ domain.SyncOptions) (domain.Page[domain.ReaderDocument], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listSeen = append(f.listSeen, cursor)
	if err := f.errs[cursor]; err != nil {
		return domain.Page[domain.ReaderDocument]{}, err
	}
	return f.pages[cursor], nil
}

func (f *fakeReader) FetchContent(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, id)
	body, ok := f.content[id]
	if !ok {
		return "", errors.New("no content")
	}
	return body, nil
}

type fakeExport struct {
	pages map[string]domain.Page[domain.ExportHighlight]
}

func (f *fakeExport) ExportHighlights(_ context.Context, cursor string, _ time.Time) (domain.Page[domain.ExportHighlight], error) {
	return f.pages[cursor], nil
}

type fakeBooks struct {
	books []domain.BookSummary
}

func (f *fakeBooks) ListBooks(_ context.Context, _ string) (domain.Page[domain.BookSummary], error) {
	return domain.Page[domain.BookSummary]{Items: f.books}, nil
}

type fakeVault struct {
	name  string
	notes []domain.VaultNote
	err   error
}

func (f *fakeVault) Name() string { return f.name }

func (f *fakeVault) FetchNotes(_ context.Context) ([]domain.VaultNote, error) {
	return f.notes, f.err
}

type fakeLibrary struct {
	rows []domain.LibraryRow
}

func (f *fakeLibrary) ReadRows(_ context.Context) ([]domain.LibraryRow, error) {
	return f.rows, nil
}

// ==================== Fixtures ====================

func readerDoc(id, url, title string) domain.ReaderDocument {
	return domain.ReaderDocument{
		ID:       id,
		URL:      url,
		Title:    title,
		Author:   "Ada",
		Category: "article",
		Location: "new",
		Content:  "body of " + id,
	}
}

func recordsOf(store *memory.RecordStore, t domain.RecordType) []domain.Record {
	list, err := store.ListRecords(context.Background(), t)
	if err != nil {
		panic(err)
	}
	return list
}
