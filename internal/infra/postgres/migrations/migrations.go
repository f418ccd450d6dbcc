package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the schema for tests and result collections.
var Migrations = migrate.NewMigrations()
