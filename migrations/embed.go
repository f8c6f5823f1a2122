// Package migrations embeds the SQLite schema used by the persistent cache.
package migrations

import "embed"

// FS holds the migration files at its root.
//
//go:embed *.sql
var FS embed.FS
