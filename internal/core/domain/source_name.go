package domain

import (
	"sort"
	"strings"
)

// SourceName identifies an external source.
type SourceName string

// Known sources. The set is fixed at build time.
const (
	// SourceReader is the read-it-later service. It provides full article content.
	SourceReader SourceName = "reader"

	// SourceReadwise is the highlighting service (highlight export and book list).
	SourceReadwise SourceName = "readwise"

	// SourceVault is a static-site note vault.
	SourceVault SourceName = "vault"

	// SourceGoodreads is the spreadsheet-style bulk export of a book library.
	SourceGoodreads SourceName = "goodreads"
)

// SourceInfo describes static properties of a source.
type SourceInfo struct {
	// Bit is the source's position in a SourceSet.
	Bit SourceSet

	// FullContent marks sources whose identifier implies full body content.
	FullContent bool

	// ContentService marks hosted reading services, as opposed to files and vaults.
	ContentService bool
}

var sourceInfo = map[SourceName]SourceInfo{
	SourceReader:    {Bit: 1 << 0, FullContent: true, ContentService: true},
	SourceReadwise:  {Bit: 1 << 1, ContentService: true},
	SourceVault:     {Bit: 1 << 2},
	SourceGoodreads: {Bit: 1 << 3},
}

// Info returns the static properties of a source.
func (s SourceName) Info() (SourceInfo, bool) {
	info, ok := sourceInfo[s]
	return info, ok
}

// ParseSourceName validates a source name.
func ParseSourceName(s string) (SourceName, error) {
	name := SourceName(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := sourceInfo[name]; !ok {
		return "", ErrUnknownSource
	}
	return name, nil
}

// SourceNames returns all known sources in a stable order.
func SourceNames() []SourceName {
	names := make([]SourceName, 0, len(sourceInfo))
	for name := range sourceInfo {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return sourceInfo[names[i]].Bit < sourceInfo[names[j]].Bit
	})
	return names
}

// SourceSet is a bitmask of sources that have synced a record.
type SourceSet uint32

// Add returns the set with the source included.
func (s SourceSet) Add(name SourceName) SourceSet {
	info, ok := sourceInfo[name]
	if !ok {
		return s
	}
	return s | info.Bit
}

// Has reports whether the source is in the set.
func (s SourceSet) Has(name SourceName) bool {
	info, ok := sourceInfo[name]
	return ok && s&info.Bit != 0
}

// Union returns the union of two sets.
func (s SourceSet) Union(o SourceSet) SourceSet {
	return s | o
}

// Names lists the sources in the set.
func (s SourceSet) Names() []SourceName {
	var names []SourceName
	for _, name := range SourceNames() {
		if s.Has(name) {
			names = append(names, name)
		}
	}
	return names
}

// String renders the set as a comma separated list.
func (s SourceSet) String() string {
	names := s.Names()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ",")
}
