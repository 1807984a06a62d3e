package migrations

import (
	"database/sql"
	"embed"

	"focustrack/internal/database"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// MigrateUp brings a local tracker database to the latest schema version.
func MigrateUp(db *sql.DB) error {
	return database.MigrateUp(db, migrationFiles, "files")
}

// CheckStatus verifies that a local tracker database schema is up-to-date.
func CheckStatus(db *sql.DB) error {
	return database.CheckMigrationStatus(db, migrationFiles, "files")
}
