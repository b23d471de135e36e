package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// schemaVersion is the highest migration step known to this build.
// A file already at or beyond this version is left untouched: there is no
// downgrade path, and future versions are not an error.
const schemaVersion = 1

// migrationFiles maps each version to its embedded DDL file. One file per
// step, applied strictly in order.
var migrationFiles = map[int]string{
	1: "migrations/000001_credential_tables.sql",
}

// migrate brings the schema from currentVersion up to schemaVersion, one
// step at a time. Each step runs in its own transaction together with the
// PRAGMA user_version stamp, so a crash mid-step can never leave the
// version marker ahead of the schema.
func migrate(ctx context.Context, db *sql.DB, currentVersion int, logger *slog.Logger) error {
	logger.Debug("schema version", "current", currentVersion, "target", schemaVersion)

	if currentVersion >= schemaVersion {
		return nil
	}

	for v := currentVersion + 1; v <= schemaVersion; v++ {
		if err := applyMigration(ctx, db, v, logger); err != nil {
			return err
		}
	}

	return nil
}

// applyMigration runs a single numbered migration step atomically.
func applyMigration(ctx context.Context, db *sql.DB, version int, logger *slog.Logger) error {
	filename, ok := migrationFiles[version]
	if !ok {
		return fmt.Errorf("%w: no migration for version %d", ErrMigration, version)
	}

	ddl, err := fs.ReadFile(migrationsFS, filename)
	if err != nil {
		return fmt.Errorf("%w: reading step %d: %w", ErrMigration, version, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin step %d: %w", ErrMigration, version, err)
	}

	if _, execErr := tx.ExecContext(ctx, string(ddl)); execErr != nil {
		rollbackErr := tx.Rollback()
		return fmt.Errorf("%w: step %d: %w (rollback: %v)", ErrMigration, version, execErr, rollbackErr)
	}

	// Stamp the new version inside the same transaction. PRAGMA cannot be
	// parameterized.
	if _, execErr := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); execErr != nil {
		rollbackErr := tx.Rollback()
		return fmt.Errorf("%w: stamping version %d: %w (rollback: %v)", ErrMigration, version, execErr, rollbackErr)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit step %d: %w", ErrMigration, version, err)
	}

	logger.Info("applied schema migration", "version", version)

	return nil
}
