// Package migrations embeds the job log schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
