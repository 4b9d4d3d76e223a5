package domain

import (
	"fmt"
	"time"
)

// Decision is the outcome of reconciling one source item.
type Decision int

// Decisions, in the order they appear in a SyncResult.
const (
	DecisionCreated Decision = iota
	DecisionUpdated
	DecisionUnchanged
	DecisionSkipped
)

func (d Decision) String() string {
	switch d {
	case DecisionCreated:
		return "created"
	case DecisionUpdated:
		return "updated"
	case DecisionUnchanged:
		return "unchanged"
	case DecisionSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// SyncOptions narrows a sync run.
type SyncOptions struct {
	// Scope selects a vault for the vault source, or a location for the reader source.
	Scope string

	// UpdatedAfter limits sources that support it to items changed after this time.
	UpdatedAfter time.Time
}

// SyncError ties a failure to the source item that caused it.
type SyncError struct {
	// Ref is the item's own identifier or title, or "page N" for page failures.
	Ref string

	// Message is the error text.
	Message string
}

func (e SyncError) String() string {
	return e.Ref + ": " + e.Message
}

// SyncResult summarises one sync invocation.
// A result with errors means the run succeeded with caveats.
type SyncResult struct {
	Source SourceName
	Scope  string

	Created   int
	Updated   int
	Unchanged int
	Skipped   int
	Failed    int

	// Pages is the number of page fetches attempted.
	Pages int

	Errors []SyncError

	StartedAt  time.Time
	FinishedAt time.Time
}

// Processed returns the number of items that reached a decision or failed.
func (r SyncResult) Processed() int {
	return r.Created + r.Updated + r.Unchanged + r.Skipped + r.Failed
}

// HasErrors reports whether any item or page failed.
func (r SyncResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Page is one page of source items.
type Page[T any] struct {
	Items []T

	// NextCursor is empty when the source has no further pages.
	NextCursor string
}
