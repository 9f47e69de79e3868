package db

import "embed"

// MigrationFS holds the challenge store schema (internal/db/migrations). Applied by cmd/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
