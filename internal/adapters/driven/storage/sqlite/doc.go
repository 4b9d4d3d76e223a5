// Package sqlite provides the SQLite-backed record and scheduler stores.
//
// It uses modernc.org/sqlite, a pure Go driver, so the binary builds
// without CGO. Migrations are embedded and applied on open.
package sqlite
