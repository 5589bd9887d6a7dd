package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry applied by the migrate command. Each migration
// registers itself from its own numbered file; bun derives the migration name
// from that filename.
var Migrations = migrate.NewMigrations()
