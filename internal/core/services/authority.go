package services

import (
	"strings"
	"time"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/identity"
)

// Authority says how a source may write a canonical field.
type Authority int

const (
	// Contribute fills the field only when it is locally empty.
	Contribute Authority = iota

	// Authoritative overwrites the local value whenever the source provides one.
	// Flags are always considered provided.
	Authoritative

	// Union adds the source's labels to the local set.
	Union

	// Keep leaves the local value untouched.
	Keep
)

// AuthorityPolicy maps fields to the authority a source holds over them.
// Unlisted scalar fields default to Contribute and unlisted label fields to Union.
type AuthorityPolicy map[domain.Field]Authority

// Of returns the authority held over a field.
func (p AuthorityPolicy) Of(fa fieldAccess) Authority {
	if a, ok := p[fa.field]; ok {
		return a
	}
	if fa.kind == labelField {
		return Union
	}
	return Contribute
}

var authorityPolicies = map[domain.SourceName]AuthorityPolicy{
	// The read-it-later service is the source of truth for "have I read this".
	domain.SourceReader: {
		domain.FieldLocation: Authoritative,
		domain.FieldArchived: Authoritative,
		domain.FieldStarred:  Authoritative,
		domain.FieldProgress: Authoritative,
		domain.FieldStatus:   Authoritative,
		domain.FieldBody:     Authoritative,
	},
	domain.SourceReadwise: {},
	domain.SourceVault: {
		domain.FieldTitle:       Authoritative,
		domain.FieldBody:        Authoritative,
		domain.FieldDescription: Authoritative,
		domain.FieldLink:        Authoritative,
		domain.FieldPublishedAt: Authoritative,
		domain.FieldTags:        Authoritative,
	},
	domain.SourceGoodreads: {
		domain.FieldStatus:      Authoritative,
		domain.FieldRating:      Authoritative,
		domain.FieldFormat:      Authoritative,
		domain.FieldCompletedAt: Authoritative,
	},
}

// siblingPolicy applies to a source item that matched a record already bound
// to a different item of the same source.
// Flags are kept because an unset flag cannot be told apart from false.
var siblingPolicy = AuthorityPolicy{
	domain.FieldArchived: Keep,
	domain.FieldStarred:  Keep,
}

// PolicyFor returns the authority policy of a source.
func PolicyFor(source domain.SourceName) AuthorityPolicy {
	return authorityPolicies[source]
}

// applyFields writes incoming scalar and flag fields onto local according to
// the policy and returns the fields that changed.
func applyFields(policy AuthorityPolicy, local, incoming *domain.Record) []domain.Field {
	var changed []domain.Field
	for _, fa := range recordFields {
		if fa.kind == labelField {
			continue
		}
		switch policy.Of(fa) {
		case Authoritative:
			if fa.kind == scalarField && !fa.isSet(incoming) {
				continue
			}
			if !fa.equal(local, incoming) {
				fa.copy(local, incoming)
				changed = append(changed, fa.field)
			}
		case Contribute:
			if fa.isSet(incoming) && !fa.isSet(local) {
				fa.copy(local, incoming)
				changed = append(changed, fa.field)
			}
		case Union, Keep:
		}
	}
	return changed
}

// applyLabels reconciles label sets and returns the fields that changed.
// Authoritative label sets are replaced on drift, even by an empty set.
func applyLabels(policy AuthorityPolicy, local, incoming *domain.Record) []domain.Field {
	var changed []domain.Field
	for _, fa := range recordFields {
		if fa.kind != labelField {
			continue
		}
		switch policy.Of(fa) {
		case Authoritative:
			if !fa.equal(local, incoming) {
				fa.copy(local, incoming)
				changed = append(changed, fa.field)
			}
		case Union:
			l := fa.labels(local)
			merged := identity.UnionLabels(*l, *fa.labels(incoming))
			if len(merged) != len(identity.UnionLabels(*l, nil)) {
				*l = merged
				changed = append(changed, fa.field)
			}
		case Contribute:
			if fa.isSet(incoming) && !fa.isSet(local) {
				fa.copy(local, incoming)
				changed = append(changed, fa.field)
			}
		case Keep:
		}
	}
	return changed
}

// applyBody writes the incoming body when its fingerprint differs and the
// policy allows it. It reports whether the body changed.
func applyBody(policy AuthorityPolicy, local, incoming *domain.Record, now time.Time) bool {
	fp := identity.Fingerprint(incoming.Body)
	if fp == identity.NoFingerprint || fp == local.Fingerprint {
		return false
	}
	if policy[domain.FieldBody] != Authoritative && local.Body != "" {
		return false
	}
	local.Body = incoming.Body
	local.Fingerprint = fp
	local.ContentSyncedAt = now
	return true
}

// Lookup tables for source vocabularies. Keys are lowercase.

var readerLocationStatus = map[string]domain.Status{
	"archive": domain.StatusCompleted,
}

var shelfStatus = map[string]domain.Status{
	"to-read":           domain.StatusUncharted,
	"currently-reading": domain.StatusActivelyExploring,
	"read":              domain.StatusCompleted,
	"to-be-continued":   domain.StatusAbandoned,
	"to be continued":   domain.StatusAbandoned,
}

var ratingLevels = map[int]domain.Rating{
	5: domain.RatingSuperLike,
	4: domain.RatingLike,
	3: domain.RatingNeutral,
	2: domain.RatingDislike,
	1: domain.RatingDislike,
}

var bindingFormats = map[string]domain.Format{
	"paperback":             domain.FormatPhysical,
	"hardcover":             domain.FormatPhysical,
	"hardback":              domain.FormatPhysical,
	"mass market paperback": domain.FormatPhysical,
}

func vocabularyKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// StatusForReaderLocation maps a read-it-later location to a status.
// Locations without an opinion return the empty status.
func StatusForReaderLocation(location string) domain.Status {
	return readerLocationStatus[vocabularyKey(location)]
}

// StatusForShelf maps a library shelf to a status, defaulting to Uncharted.
func StatusForShelf(shelf string) domain.Status {
	if s, ok := shelfStatus[vocabularyKey(shelf)]; ok {
		return s
	}
	return domain.StatusUncharted
}

// RatingForStars maps a 0-5 star rating to a rating level. Zero means unrated.
func RatingForStars(stars int) domain.Rating {
	return ratingLevels[stars]
}

// FormatForBinding maps a binding name to a book format, defaulting to Digital.
func FormatForBinding(binding string) domain.Format {
	if f, ok := bindingFormats[vocabularyKey(binding)]; ok {
		return f
	}
	return domain.FormatDigital
}
