package identity

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// FoldLabel returns the comparison form of a label.
func FoldLabel(label string) string {
	// cases.Caser is stateful, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(label))
}

// UnionLabels merges two label sets with case-insensitive uniqueness.
// The first spelling seen wins; blank labels are dropped.
func UnionLabels(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, set := range [][]string{a, b} {
		for _, label := range set {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			key := FoldLabel(label)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, label)
		}
	}
	return out
}

// NormalizeLabels lowercases, trims and de-duplicates labels.
func NormalizeLabels(labels []string) []string {
	lowered := make([]string, 0, len(labels))
	for _, l := range labels {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(l)))
	}
	return UnionLabels(lowered, nil)
}

// LabelsEqual reports whether two label sets are equal ignoring order and case.
func LabelsEqual(a, b []string) bool {
	fa, fb := foldedSet(a), foldedSet(b)
	if len(fa) != len(fb) {
		return false
	}
	for i := range fa {
		if fa[i] != fb[i] {
			return false
		}
	}
	return true
}

func foldedSet(labels []string) []string {
	folded := make([]string, 0, len(labels))
	for _, l := range UnionLabels(labels, nil) {
		folded = append(folded, FoldLabel(l))
	}
	sort.Strings(folded)
	return folded
}
