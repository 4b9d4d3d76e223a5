package domain

import "time"

// ReaderDocument is an item from the read-it-later service.
type ReaderDocument struct {
	ID        string
	URL       string
	SourceURL string
	Title     string
	Author    string
	SiteName  string
	Summary   string
	ImageURL  string

	// Content is the body as markdown. It may be empty until fetched.
	Content string

	Category string

	// Location is new, later, shortlist, archive or feed.
	Location string

	Starred   bool
	WordCount int

	// ReadingProgress is a fraction between 0 and 1.
	ReadingProgress float64

	Tags          []string
	PublishedDate time.Time
	UpdatedAt     time.Time
}

// ExportHighlight is a highlight from the highlight export, flattened with
// the details of the item it was made in.
type ExportHighlight struct {
	ID            string
	Text          string
	Note          string
	Location      string
	Color         string
	Favorite      bool
	Tags          []string
	HighlightedAt time.Time
	UpdatedAt     time.Time

	BookID     string
	BookTitle  string
	BookAuthor string
	Category   string
	SourceURL  string
}

// BookSummary is a book listed by the highlighting service.
type BookSummary struct {
	ID            string
	Title         string
	Author        string
	Category      string
	CoverImageURL string
	SourceURL     string
	NumHighlights int
	UpdatedAt     time.Time
}

// VaultNote is a note published in a vault.
type VaultNote struct {
	Slug        string
	Vault       string
	Title       string
	Content     string
	Description string
	SourceURL   string
	Tags        []string
	Date        time.Time
}

// LibraryRow is one row of a bulk library export.
type LibraryRow struct {
	// Line is the 1-based row number in the export, for error reporting.
	Line int

	BookID        string
	Title         string
	Author        string
	ISBN          string
	ISBN13        string
	Publisher     string
	Binding       string
	Shelf         string
	Bookshelves   []string
	Rating        int
	Pages         int
	YearPublished int
	Review        string
	DateRead      time.Time
	DateAdded     time.Time
}
