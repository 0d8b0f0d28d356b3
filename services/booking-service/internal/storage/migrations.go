package storage

import "embed"

// Migrations holds the schema for the shared catalog and booking tables.
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"
