// Package db embeds the SQL migrations shipped with the catalog.
package db

import "embed"

// Migrations holds the embedded migration files, compiled in with the
// embed_migrations build tag via cmd/catalogctl.
//
//go:embed migrations
var Migrations embed.FS
