// Package migrations embeds the goose migrations of every storage backend.
package migrations

import "embed"

// FS holds one directory of migrations per dialect.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Directories inside FS.
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
