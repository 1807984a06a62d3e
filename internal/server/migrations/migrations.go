// Package migrations embeds the sql migration files for the server's
// shared record database and applies them with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"

	"focustrack/internal/database"
)

//go:embed files/*.sql
var files embed.FS

const migrationsDir = "files"

func MigrateUp(db *sql.DB) error {
	return database.MigrateUp(db, files, migrationsDir)
}

func CheckStatus(db *sql.DB) error {
	return database.CheckMigrationStatus(db, files, migrationsDir)
}
