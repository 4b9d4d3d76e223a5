package services

import "time"

// Sync flows. The highlighting service has two flows with different limits.
const (
	FlowReader  = "reader"
	FlowExport  = "readwise.export"
	FlowBooks   = "readwise.books"
	FlowVault   = "vault"
	FlowLibrary = "goodreads"
)

// SyncLimits bounds one flow's paging loop.
type SyncLimits struct {
	// PageLimit is the hard cap on page fetches, retries included.
	PageLimit int

	// PageDelay is the fixed interval between page fetches.
	PageDelay time.Duration

	// ItemDelay is the fixed interval between per-item enrichment calls.
	ItemDelay time.Duration
}

// Limits holds the limits per flow.
type Limits map[string]SyncLimits

// maxConsecutivePageFailures ends a run when a source keeps failing.
const maxConsecutivePageFailures = 3

// DefaultLimits returns the limits the external services tolerate.
func DefaultLimits() Limits {
	return Limits{
		FlowReader:  {PageLimit: 100, PageDelay: 250 * time.Millisecond, ItemDelay: 300 * time.Millisecond},
		FlowExport:  {PageLimit: 100, PageDelay: 3 * time.Second},
		FlowBooks:   {PageLimit: 1000, PageDelay: 3 * time.Second},
		FlowVault:   {PageLimit: 1},
		FlowLibrary: {PageLimit: 1},
	}
}

// For returns the limits of a flow, falling back to the defaults.
func (l Limits) For(flow string) SyncLimits {
	if lim, ok := l[flow]; ok && lim.PageLimit > 0 {
		return lim
	}
	return DefaultLimits()[flow]
}
