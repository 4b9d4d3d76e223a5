// Package domain defines the core business entities for shelfsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record: the canonical local representation of an article, book or note
//   - Highlight: a dependent of a record that follows it through merges
//   - SyncResult: the summary of one sync invocation
//   - DuplicateGroup / MergeResult: the input and output of a merge pass
//   - Source item DTOs: what each source adapter hands to the core
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
