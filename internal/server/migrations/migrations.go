// Package migrations embeds the goose SQL migrations applied during the
// explicit startup phase.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
