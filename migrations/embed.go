// Package migrations embeds the schema migration files so the migrate
// tool ships as a single binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
