// Package goodreads reads the library export CSV that Goodreads produces
// from "Import and export" in account settings.
package goodreads

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
	"github.com/custodia-labs/shelfsync/internal/logger"
)

// Export columns.
const (
	colBookID       = "Book Id"
	colTitle        = "Title"
	colAuthor       = "Author"
	colISBN         = "ISBN"
	colISBN13       = "ISBN13"
	colRating       = "My Rating"
	colPublisher    = "Publisher"
	colBinding      = "Binding"
	colPages        = "Number of Pages"
	colYear         = "Year Published"
	colOriginalYear = "Original Publication Year"
	colDateRead     = "Date Read"
	colDateAdded    = "Date Added"
	colBookshelves  = "Bookshelves"
	colExclusive    = "Exclusive Shelf"
	colReview       = "My Review"
)

// Slash dates are month-first, as the export writes them. A date that
// cannot be month-first is read day-first.
var dateOptions = []dateparse.ParserOption{
	dateparse.PreferMonthFirst(true),
	dateparse.RetryAmbiguousDateWithSwap(true),
}

// Ensure Library implements the interface.
var _ driven.LibrarySource = (*Library)(nil)

// Config holds the settings of the export reader.
type Config struct {
	// Path is the location of the exported CSV file.
	Path string
}

// Library reads rows from an export file on disk.
type Library struct {
	path string
}

// New creates a reader for the configured export file.
func New(cfg Config) (*Library, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("goodreads: %w", domain.ErrSourceNotConfigured)
	}
	return &Library{path: cfg.Path}, nil
}

// Path is the export file this reader uses.
func (l *Library) Path() string {
	return l.path
}

// ReadRows parses the whole export.
func (l *Library) ReadRows(ctx context.Context) ([]domain.LibraryRow, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("goodreads: %w", err)
	}
	defer f.Close()

	rows, err := Parse(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("goodreads %s: %w", l.path, err)
	}
	logger.Debug("goodreads: read %d rows from %s", len(rows), l.path)
	return rows, nil
}

// Parse reads an export from r. Columns are found by header name, so
// exports with extra or reordered columns still parse. Values that fail
// to parse are left empty; checking required fields is the caller's job.
func Parse(ctx context.Context, r io.Reader) ([]domain.LibraryRow, error) {
	br := bufio.NewReader(r)
	if bom, _ := br.Peek(3); len(bom) == 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", domain.ErrMalformedItem, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colTitle, colAuthor} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing %q column", domain.ErrMalformedItem, required)
		}
	}

	var rows []domain.LibraryRow
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedItem, err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, toRow(line, fields{cols: cols, record: record}))
	}
	return rows, nil
}

// fields looks values up by column name.
type fields struct {
	cols   map[string]int
	record []string
}

func (f fields) get(name string) string {
	i, ok := f.cols[name]
	if !ok || i >= len(f.record) {
		return ""
	}
	return strings.TrimSpace(f.record[i])
}

func (f fields) number(name string) int {
	v := f.get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Debug("goodreads: ignoring %s %q", name, v)
		return 0
	}
	return n
}

func toRow(line int, f fields) domain.LibraryRow {
	year := f.number(colYear)
	if year == 0 {
		year = f.number(colOriginalYear)
	}
	return domain.LibraryRow{
		Line:          line,
		BookID:        f.get(colBookID),
		Title:         f.get(colTitle),
		Author:        f.get(colAuthor),
		ISBN:          unquoteFormula(f.get(colISBN)),
		ISBN13:        unquoteFormula(f.get(colISBN13)),
		Publisher:     f.get(colPublisher),
		Binding:       f.get(colBinding),
		Shelf:         f.get(colExclusive),
		Bookshelves:   SplitShelves(f.get(colBookshelves)),
		Rating:        f.number(colRating),
		Pages:         f.number(colPages),
		YearPublished: year,
		Review:        f.get(colReview),
		DateRead:      ParseDate(f.get(colDateRead)),
		DateAdded:     ParseDate(f.get(colDateAdded)),
	}
}

// unquoteFormula strips the ="..." wrapper the export puts around ISBNs.
func unquoteFormula(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "=")
	return strings.Trim(s, `"`)
}

// SplitShelves splits a bookshelves cell on commas and spaces. Shelves are
// lowercased and repeats dropped, keeping first-seen order.
func SplitShelves(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
	seen := make(map[string]bool, len(parts))
	var out []string
	for _, p := range parts {
		p = strings.ToLower(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// ParseDate reads an export date as UTC midnight. Unparseable input
// gives the zero time.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseIn(s, time.UTC, dateOptions...)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
