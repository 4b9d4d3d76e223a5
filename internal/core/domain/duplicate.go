package domain

import "time"

// DuplicateGroup is a transient set of two or more records sharing an identity key.
type DuplicateGroup struct {
	// Type is the record type of every member.
	Type RecordType

	// Key is the shared normalised identity key.
	Key string

	// Scope is the shared scope (vault name for notes).
	Scope string

	// Members are ordered by creation time, oldest first.
	Members []Record
}

// MergeResult summarises a merge pass.
type MergeResult struct {
	// Type is the record type that was merged.
	Type RecordType

	// MergedCount is the number of duplicate records absorbed and deleted.
	MergedCount int

	// GroupCount is the number of duplicate groups found.
	GroupCount int

	// Failed lists groups left unresolved for the next run.
	Failed []MergeFailure

	// Groups describes each resolved group.
	Groups []MergedGroup

	// OrphanHighlights counts highlights left pointing at a missing record
	// after the pass. Anything but zero means a merge lost a parent.
	OrphanHighlights int

	StartedAt  time.Time
	FinishedAt time.Time
}

// MergedGroup describes one resolved duplicate group.
type MergedGroup struct {
	PrimaryID    string
	DuplicateIDs []string
	Key          string
	Title        string

	// Reparented is the number of highlights moved to the primary.
	Reparented int
}

// MergeFailure records a group that could not be merged.
type MergeFailure struct {
	Key     string
	Message string
}
