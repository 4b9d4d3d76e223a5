// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - RecordStore: transactional record and highlight persistence
//   - SchedulerStore: scheduled task state and history
//   - ConfigStore: application configuration
//
// # Source Interfaces
//
// Each is optional; an unconfigured source is reported as such by RunSync:
//
//   - ReaderSource: read-it-later documents
//   - HighlightExportSource: highlight export
//   - BookListSource: books known to the highlighting service
//   - VaultSource: notes published in a vault
//   - LibrarySource: bulk library export
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
