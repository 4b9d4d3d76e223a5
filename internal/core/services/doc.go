// Package services implements the driving port interfaces.
//
// ReconcileService owns the sync flows and the duplicate merge, RecordService
// manages manual entries and Scheduler runs both on an interval. Services only
// talk to adapters through driven ports.
package services
