package services

import (
	"time"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/identity"
)

type fieldKind int

const (
	scalarField fieldKind = iota
	flagField
	labelField
)

// fieldAccess reads and writes one record field generically so authority
// rules can be applied from a table.
type fieldAccess struct {
	field domain.Field
	kind  fieldKind
	isSet func(r *domain.Record) bool
	equal func(a, b *domain.Record) bool
	copy  func(dst, src *domain.Record)

	// labels is only set for labelField entries.
	labels func(r *domain.Record) *[]string
}

func valueField[V comparable](f domain.Field, kind fieldKind, get func(r *domain.Record) *V) fieldAccess {
	var zero V
	return fieldAccess{
		field: f,
		kind:  kind,
		isSet: func(r *domain.Record) bool { return *get(r) != zero },
		equal: func(a, b *domain.Record) bool { return *get(a) == *get(b) },
		copy:  func(dst, src *domain.Record) { *get(dst) = *get(src) },
	}
}

func timeField(f domain.Field, get func(r *domain.Record) *time.Time) fieldAccess {
	return fieldAccess{
		field: f,
		kind:  scalarField,
		isSet: func(r *domain.Record) bool { return !get(r).IsZero() },
		equal: func(a, b *domain.Record) bool { return get(a).Equal(*get(b)) },
		copy:  func(dst, src *domain.Record) { *get(dst) = *get(src) },
	}
}

func labelsField(f domain.Field, get func(r *domain.Record) *[]string) fieldAccess {
	return fieldAccess{
		field:  f,
		kind:   labelField,
		isSet:  func(r *domain.Record) bool { return len(*get(r)) > 0 },
		equal:  func(a, b *domain.Record) bool { return identity.LabelsEqual(*get(a), *get(b)) },
		copy:   func(dst, src *domain.Record) { *get(dst) = append([]string(nil), *get(src)...) },
		labels: get,
	}
}

// recordFields lists every field a source may write during sync.
// Body is handled separately because it carries the fingerprint.
var recordFields = []fieldAccess{
	valueField(domain.FieldTitle, scalarField, func(r *domain.Record) *string { return &r.Title }),
	valueField(domain.FieldAuthor, scalarField, func(r *domain.Record) *string { return &r.Author }),
	valueField(domain.FieldPublication, scalarField, func(r *domain.Record) *string { return &r.Publication }),
	valueField(domain.FieldDescription, scalarField, func(r *domain.Record) *string { return &r.Description }),
	valueField(domain.FieldThumbnail, scalarField, func(r *domain.Record) *string { return &r.Thumbnail }),
	valueField(domain.FieldLink, scalarField, func(r *domain.Record) *string { return &r.Link }),
	valueField(domain.FieldISBN, scalarField, func(r *domain.Record) *string { return &r.ISBN }),
	timeField(domain.FieldPublishedAt, func(r *domain.Record) *time.Time { return &r.PublishedAt }),
	timeField(domain.FieldCompletedAt, func(r *domain.Record) *time.Time { return &r.CompletedAt }),
	valueField(domain.FieldWordCount, scalarField, func(r *domain.Record) *int { return &r.WordCount }),
	valueField(domain.FieldProgress, scalarField, func(r *domain.Record) *float64 { return &r.Progress }),
	valueField(domain.FieldStatus, scalarField, func(r *domain.Record) *domain.Status { return &r.Status }),
	valueField(domain.FieldRating, scalarField, func(r *domain.Record) *domain.Rating { return &r.Rating }),
	valueField(domain.FieldFormat, scalarField, func(r *domain.Record) *domain.Format { return &r.Format }),
	valueField(domain.FieldLocation, scalarField, func(r *domain.Record) *string { return &r.Location }),
	valueField(domain.FieldArchived, flagField, func(r *domain.Record) *bool { return &r.Archived }),
	valueField(domain.FieldStarred, flagField, func(r *domain.Record) *bool { return &r.Starred }),
	labelsField(domain.FieldTopics, func(r *domain.Record) *[]string { return &r.Topics }),
	labelsField(domain.FieldGenres, func(r *domain.Record) *[]string { return &r.Genres }),
	labelsField(domain.FieldTags, func(r *domain.Record) *[]string { return &r.Tags }),
}
