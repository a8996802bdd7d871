// Package migrations embeds the SQL schema migrations so the migrate
// binary carries its own schema and needs no files on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
