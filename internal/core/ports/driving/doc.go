// Package driving defines the services the CLI calls: syncing sources,
// resolving duplicates, manual record entry and the scheduler.
//
// Implementations live in internal/core/services.
package driving
