// Package migrations embeds the SQL migration files so binaries can apply
// them without a copy of the source tree on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
