package services

import (
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/identity"
)

// ==================== Primary selection ====================

// primaryRule narrows the candidates for the surviving record of a merge.
type primaryRule struct {
	name   string
	filter func(candidates []domain.Record) []domain.Record
}

// primaryRules are evaluated in order. The first rule that leaves exactly one
// candidate wins; a rule that leaves none is ignored; a rule that leaves
// several narrows the set for the next rule.
var primaryRules = []primaryRule{
	{name: "fully-synced", filter: keepWhere(isFullySynced)},
	{name: "content-service-linked", filter: keepWhere(hasContentServiceID)},
	{name: "highest-score", filter: highestScore},
	{name: "oldest", filter: oldestOnly},
}

// SelectPrimary picks the surviving member of a duplicate group and names the
// rule that decided it. Members must be ordered oldest first.
func SelectPrimary(members []domain.Record) (domain.Record, string, error) {
	candidates := members
	for _, rule := range primaryRules {
		if len(candidates) == 1 {
			break
		}
		narrowed := rule.filter(candidates)
		switch len(narrowed) {
		case 0:
			continue
		case 1:
			return narrowed[0], rule.name, nil
		default:
			candidates = narrowed
		}
	}
	if len(candidates) == 1 {
		return candidates[0], "only-candidate", nil
	}
	return domain.Record{}, "", domain.ErrNoPrimary
}

func keepWhere(pred func(r *domain.Record) bool) func([]domain.Record) []domain.Record {
	return func(candidates []domain.Record) []domain.Record {
		var out []domain.Record
		for i := range candidates {
			if pred(&candidates[i]) {
				out = append(out, candidates[i])
			}
		}
		return out
	}
}

// isFullySynced reports whether the record is bound to a full-content source
// and carries body content.
func isFullySynced(r *domain.Record) bool {
	if !r.HasBody() {
		return false
	}
	for source, id := range r.ExternalIDs {
		if info, ok := source.Info(); ok && info.FullContent && id != "" {
			return true
		}
	}
	return false
}

// hasContentServiceID reports whether the record is bound to any hosted reading service.
func hasContentServiceID(r *domain.Record) bool {
	for source, id := range r.ExternalIDs {
		if info, ok := source.Info(); ok && info.ContentService && id != "" {
			return true
		}
	}
	return false
}

func highestScore(candidates []domain.Record) []domain.Record {
	best := -1
	var out []domain.Record
	for _, c := range candidates {
		switch s := Score(c); {
		case s > best:
			best = s
			out = []domain.Record{c}
		case s == best:
			out = append(out, c)
		}
	}
	return out
}

// oldestOnly relies on candidates being ordered oldest first.
func oldestOnly(candidates []domain.Record) []domain.Record {
	if len(candidates) == 0 {
		return nil
	}
	return candidates[:1]
}

// ==================== Field merge ====================

// fieldMerge folds one field of a duplicate into the primary.
type fieldMerge struct {
	field domain.Field
	apply func(primary, dup *domain.Record)
}

// mergeTable is applied in order for every duplicate.
var mergeTable = []fieldMerge{
	{domain.FieldExternalIDs, mergeExternalIDs},
	{domain.FieldBody, mergeBody},
	{domain.FieldTitle, func(p, d *domain.Record) { p.Title = mergeString(p.Title, d.Title) }},
	{domain.FieldAuthor, func(p, d *domain.Record) { p.Author = mergeString(p.Author, d.Author) }},
	{domain.FieldPublication, func(p, d *domain.Record) { p.Publication = mergeString(p.Publication, d.Publication) }},
	{domain.FieldDescription, func(p, d *domain.Record) { p.Description = mergeString(p.Description, d.Description) }},
	{domain.FieldThumbnail, func(p, d *domain.Record) { p.Thumbnail = mergeString(p.Thumbnail, d.Thumbnail) }},
	{domain.FieldLink, func(p, d *domain.Record) { p.Link = keepPresent(p.Link, d.Link) }},
	{domain.FieldISBN, func(p, d *domain.Record) { p.ISBN = keepPresent(p.ISBN, d.ISBN) }},
	{domain.FieldPublishedAt, func(p, d *domain.Record) { p.PublishedAt = mergeTime(p.PublishedAt, d.PublishedAt) }},
	{domain.FieldCompletedAt, func(p, d *domain.Record) { p.CompletedAt = mergeTime(p.CompletedAt, d.CompletedAt) }},
	{domain.FieldWordCount, func(p, d *domain.Record) { p.WordCount = mergeCount(p.WordCount, d.WordCount) }},
	{domain.FieldProgress, func(p, d *domain.Record) { p.Progress = mergeProgress(p.Progress, d.Progress) }},
	{domain.FieldStatus, func(p, d *domain.Record) { p.Status = mergeStatus(p.Status, d.Status) }},
	{domain.FieldRating, func(p, d *domain.Record) { p.Rating = keepPresent(p.Rating, d.Rating) }},
	{domain.FieldFormat, func(p, d *domain.Record) { p.Format = keepPresent(p.Format, d.Format) }},
	{domain.FieldTopics, func(p, d *domain.Record) { p.Topics = identity.UnionLabels(p.Topics, d.Topics) }},
	{domain.FieldGenres, func(p, d *domain.Record) { p.Genres = identity.UnionLabels(p.Genres, d.Genres) }},
	{domain.FieldTags, func(p, d *domain.Record) { p.Tags = identity.UnionLabels(p.Tags, d.Tags) }},
}

// MergeRecords folds dup into primary field by field.
func MergeRecords(primary, dup *domain.Record) {
	for _, m := range mergeTable {
		m.apply(primary, dup)
	}
}

// mergeExternalIDs copies identifiers the primary lacks. Read-it-later state
// travels with its identifier.
func mergeExternalIDs(p, d *domain.Record) {
	for source, id := range d.ExternalIDs {
		if p.ExternalID(source) != "" {
			continue
		}
		p.SetExternalID(source, id)
		if source == domain.SourceReader {
			p.Location = d.Location
			p.Archived = d.Archived
			p.Starred = d.Starred
		}
	}
	p.SyncedBy = p.SyncedBy.Union(d.SyncedBy)
	for source, at := range d.SourceSyncedAt {
		if at.After(p.SourceSyncedAt[source]) {
			p.MarkSynced(source, at)
		}
	}
	p.LastSyncedAt = mergeLatest(p.LastSyncedAt, d.LastSyncedAt)
}

// mergeBody takes the duplicate's body when the primary has none or the
// duplicate's snapshot is more recent.
func mergeBody(p, d *domain.Record) {
	if d.Body == "" {
		return
	}
	if p.Body == "" || d.ContentSyncedAt.After(p.ContentSyncedAt) {
		p.Body = d.Body
		p.Fingerprint = identity.Fingerprint(d.Body)
		p.ContentSyncedAt = d.ContentSyncedAt
	}
}

// mergeString prefers a non-empty value, then the longer one.
func mergeString(p, d string) string {
	if p == "" {
		return d
	}
	if utf8.RuneCountInString(d) > utf8.RuneCountInString(p) {
		return d
	}
	return p
}

func keepPresent[V comparable](p, d V) V {
	var zero V
	if p == zero {
		return d
	}
	return p
}

func mergeTime(p, d time.Time) time.Time {
	if p.IsZero() {
		return d
	}
	return p
}

func mergeLatest(p, d time.Time) time.Time {
	if d.After(p) {
		return d
	}
	return p
}

func mergeCount(p, d int) int {
	if p != 0 {
		return p
	}
	return d
}

func mergeProgress(p, d float64) float64 {
	if p != 0 {
		return p
	}
	return d
}

// mergeStatus treats Uncharted as "no information".
func mergeStatus(p, d domain.Status) domain.Status {
	if p == "" || p == domain.StatusUncharted {
		if d != "" {
			return d
		}
	}
	return p
}
