// Package migrations holds the numbered schema migrations applied by the
// sqlite store on open.
package migrations

import "embed"

// FS holds every NNN_name.up.sql file.
//
//go:embed *.up.sql
var FS embed.FS
