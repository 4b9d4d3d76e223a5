package services

import (
	"sort"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/identity"
)

// FindDuplicates groups records by their normalised identity key and returns
// every group with two or more members. Keys are recomputed from each
// record's locators, so records stored under older normalisation rules are
// still grouped. Members are ordered oldest first; groups are ordered by their
// oldest member. The input is not modified.
func FindDuplicates(records []domain.Record) []domain.DuplicateGroup {
	type groupKey struct {
		scope string
		key   string
	}

	index := make(map[groupKey]int)
	var groups []domain.DuplicateGroup

	for _, r := range records {
		key := identity.KeyFor(r)
		if key == "" {
			continue
		}
		gk := groupKey{scope: r.Scope, key: key}
		i, ok := index[gk]
		if !ok {
			i = len(groups)
			index[gk] = i
			groups = append(groups, domain.DuplicateGroup{Type: r.Type, Key: key, Scope: r.Scope})
		}
		groups[i].Members = append(groups[i].Members, r.Clone())
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g.Members) < 2 {
			continue
		}
		sortOldestFirst(g.Members)
		out = append(out, g)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return olderThan(out[i].Members[0], out[j].Members[0])
	})
	return out
}

func sortOldestFirst(records []domain.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return olderThan(records[i], records[j])
	})
}

func olderThan(a, b domain.Record) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
