package domain

import "time"

// Highlight is a passage highlighted in an article or a book.
// It is a dependent of its parent record and follows it through merges.
type Highlight struct {
	// ID is the stable local identifier.
	ID string

	// ExternalID is the highlighting service's identifier.
	ExternalID string

	// ParentID references the owning record. Empty when not linked yet.
	ParentID string

	// ParentType is the type of the owning record.
	ParentType RecordType

	Text     string
	Note     string
	Location string
	Color    string
	Favorite bool
	Tags     []string

	// SourceURL, SourceTitle and SourceAuthor describe the highlighted item
	// and are used to link the highlight to a parent record.
	SourceURL    string
	SourceTitle  string
	SourceAuthor string
	Category     string

	// Fingerprint covers the mutable highlight content.
	Fingerprint string

	HighlightedAt   time.Time
	SourceUpdatedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Linked reports whether the highlight has a parent record.
func (h *Highlight) Linked() bool {
	return h.ParentID != ""
}
