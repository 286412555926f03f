package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
)

// LatestMigrationVersion is the latest migration version of the ledger
// database.
//
// NOTE: This MUST be updated when a new migration is added.
const LatestMigrationVersion uint = 1

// ErrMigrationDowngrade is returned when a database downgrade is detected.
var ErrMigrationDowngrade = errors.New("database downgrade detected")

// migrationLogger wraps slog.Logger to implement the migrate.Logger
// interface.
type migrationLogger struct {
	log *slog.Logger
}

// Printf implements the migrate.Logger interface.
func (m *migrationLogger) Printf(format string, v ...any) {
	format = strings.TrimRight(format, "\n")
	m.log.Debug(fmt.Sprintf(format, v...))
}

// Verbose returns true when verbose logging is enabled.
func (m *migrationLogger) Verbose() bool {
	return false
}

// applyMigrations brings the ledger schema up to the latest embedded
// migration version. Down migrations may drop data, so a database newer
// than this binary's latest known version aborts instead of downgrading.
func applyMigrations(db *sql.DB, log *slog.Logger) error {
	driver, err := migratesqlite.WithInstance(
		db, &migratesqlite.Config{},
	)
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	// Serve the embedded migration files to the migrator.
	src, err := httpfs.New(http.FS(sqlSchemas), "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	mig, err := migrate.NewWithInstance(
		"migrations", src, "prsentry", driver,
	)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	mig.Log = &migrationLogger{log}

	version, dirty, err := mig.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("unable to determine current migration "+
			"version: %w", err)
	}

	// A dirty version means a previous migration did not complete and
	// requires manual intervention.
	if dirty {
		return fmt.Errorf("database is in a dirty state at version "+
			"%v, manual intervention required", version)
	}

	if version > LatestMigrationVersion {
		return fmt.Errorf("%w: db_version=%v, "+
			"latest_migration_version=%v", ErrMigrationDowngrade,
			version, LatestMigrationVersion)
	}

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
