package domain

import "time"

// RecordType identifies the kind of canonical record.
type RecordType string

const (
	// RecordTypeArticle is a web article keyed by its normalised URL.
	RecordTypeArticle RecordType = "article"

	// RecordTypeBook is a book keyed by ISBN, or by title and author.
	RecordTypeBook RecordType = "book"

	// RecordTypeNote is a vault note keyed by slug within its vault.
	RecordTypeNote RecordType = "note"

	// RecordTypeHighlight is a highlight attached to an article or a book.
	// Highlights are not canonical records; the type exists for locking.
	RecordTypeHighlight RecordType = "highlight"
)

// RecordTypes lists the canonical record types.
var RecordTypes = []RecordType{RecordTypeArticle, RecordTypeBook, RecordTypeNote}

// ParseRecordType converts user input into a RecordType.
func ParseRecordType(s string) (RecordType, error) {
	switch RecordType(s) {
	case RecordTypeArticle, "articles":
		return RecordTypeArticle, nil
	case RecordTypeBook, "books":
		return RecordTypeBook, nil
	case RecordTypeNote, "notes":
		return RecordTypeNote, nil
	default:
		return "", ErrInvalidInput
	}
}

// Status is the reading status of a record.
type Status string

// Statuses. Uncharted is the zero-information status.
const (
	StatusUncharted         Status = "uncharted"
	StatusActivelyExploring Status = "actively_exploring"
	StatusCompleted         Status = "completed"
	StatusAbandoned         Status = "abandoned"
)

// Rating is the user's opinion of a record.
type Rating string

// Ratings. The empty rating means not rated.
const (
	RatingNone      Rating = ""
	RatingSuperLike Rating = "super_like"
	RatingLike      Rating = "like"
	RatingNeutral   Rating = "neutral"
	RatingDislike   Rating = "dislike"
)

// Format is the physical form of a book.
type Format string

// Formats.
const (
	FormatUnknown  Format = ""
	FormatDigital  Format = "digital"
	FormatPhysical Format = "physical"
)

// Record is the single locally-owned representation of a real-world item.
type Record struct {
	// ID is the stable local identifier.
	ID string

	// Type is the record kind.
	Type RecordType

	// Scope narrows identity for scoped types (the vault name for notes).
	Scope string

	// IdentityKey is the normalised identity computed when the record was last written.
	IdentityKey string

	// MatchKey is the secondary title/author key used to match books.
	MatchKey string

	// Link is the raw locator (URL) as received.
	Link string

	// Slug is the vault-relative path of a note.
	Slug string

	// ISBN is the book's ISBN as received.
	ISBN string

	Title       string
	Author      string
	Publication string
	Description string
	Thumbnail   string

	// Body is the full content payload.
	Body string

	// Fingerprint is the content hash of Body. Empty means no content yet.
	Fingerprint string

	// ContentSyncedAt is when Body was last written from a source snapshot.
	ContentSyncedAt time.Time

	PublishedAt time.Time
	CompletedAt time.Time

	WordCount int

	// Progress is the reading progress as a percentage (0-100).
	Progress float64

	Status Status
	Rating Rating
	Format Format

	// Location is the read-it-later location (new, later, archive, feed).
	Location string
	Archived bool
	Starred  bool

	// Labels. Order is irrelevant; uniqueness is case-insensitive.
	Topics []string
	Genres []string
	Tags   []string

	// ExternalIDs maps each linked source to its identifier for this record.
	ExternalIDs map[SourceName]string

	// SyncedBy is the set of sources that have synced this record.
	SyncedBy SourceSet

	// SourceSyncedAt holds the last sync time per source.
	SourceSyncedAt map[SourceName]time.Time

	// LastSyncedAt is the most recent sync time across sources.
	LastSyncedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExternalID returns the identifier this record carries for a source.
func (r *Record) ExternalID(source SourceName) string {
	if r.ExternalIDs == nil {
		return ""
	}
	return r.ExternalIDs[source]
}

// SetExternalID binds the record to a source identifier.
func (r *Record) SetExternalID(source SourceName, id string) {
	if id == "" {
		return
	}
	if r.ExternalIDs == nil {
		r.ExternalIDs = make(map[SourceName]string)
	}
	r.ExternalIDs[source] = id
}

// MarkSynced records that a source synced this record at the given time.
func (r *Record) MarkSynced(source SourceName, at time.Time) {
	r.SyncedBy = r.SyncedBy.Add(source)
	if r.SourceSyncedAt == nil {
		r.SourceSyncedAt = make(map[SourceName]time.Time)
	}
	r.SourceSyncedAt[source] = at
	if at.After(r.LastSyncedAt) {
		r.LastSyncedAt = at
	}
}

// HasBody reports whether the record carries full content.
func (r *Record) HasBody() bool {
	return r.Body != ""
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	c.Topics = cloneStrings(r.Topics)
	c.Genres = cloneStrings(r.Genres)
	c.Tags = cloneStrings(r.Tags)
	if r.ExternalIDs != nil {
		c.ExternalIDs = make(map[SourceName]string, len(r.ExternalIDs))
		for k, v := range r.ExternalIDs {
			c.ExternalIDs[k] = v
		}
	}
	if r.SourceSyncedAt != nil {
		c.SourceSyncedAt = make(map[SourceName]time.Time, len(r.SourceSyncedAt))
		for k, v := range r.SourceSyncedAt {
			c.SourceSyncedAt[k] = v
		}
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
