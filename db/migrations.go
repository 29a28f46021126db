// Package db embeds the Postgres schema migrations so the binary can migrate
// without the files being shipped next to it.
package db

import "embed"

// PostgresPath is the directory of Postgres migrations inside Migrations.
const PostgresPath = "pg"

//go:embed pg/*.sql
var Migrations embed.FS
