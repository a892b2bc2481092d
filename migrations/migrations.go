// Package migrations embeds the SQL schema migrations so a binary carries
// its own schema and needs no migration files on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
