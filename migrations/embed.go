// Package migrations embeds the SQL schema, one directory per database driver.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite3/*.sql
var FS embed.FS
