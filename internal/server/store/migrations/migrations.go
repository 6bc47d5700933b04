// Package migrations embeds the goose SQL migrations for the users and
// persons tables so the server binary carries its own schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
