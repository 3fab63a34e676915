// Package migrations embeds the SQL migration files so binaries can
// run them without shipping the files alongside.
package migrations

import "embed"

//go:embed *.sql
var MigrationsFS embed.FS
