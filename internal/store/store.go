// Package store owns the acp credential database: a single SQLite file
// stamped with an application ID on creation, carried forward through
// ordered schema migrations, holding Globus token blobs and AWS keys.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// ApplicationID is stamped into PRAGMA application_id when the database is
// created and verified on every subsequent open. It is the string 'acp\0'
// read as a big-endian 32-bit signed integer.
const ApplicationID int32 = 1633906688

// Store is the open credential database. One handle exists per process,
// acquired at startup and released with Close on every exit path.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the database at path, creating it if absent.
//
// A new file is stamped with ApplicationID and starts at schema version 0.
// An existing file must carry ApplicationID; any other value fails with
// ErrIdentityMismatch and leaves the file untouched. After the identity
// check, pending migrations run (see migrate.go).
//
// The caller owns the returned handle and must Close it.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Stat before sql.Open: the driver creates the file lazily, so this is
	// the only reliable new-vs-existing signal.
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	logger.Debug("opening credential database", "path", path, "new", isNew)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	if err := prepare(ctx, db, isNew, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// prepare stamps or verifies the application ID and runs migrations.
func prepare(ctx context.Context, db *sql.DB, isNew bool, logger *slog.Logger) error {
	if isNew {
		logger.Debug("new database, stamping application ID")

		// PRAGMA cannot be parameterized; ApplicationID is a constant.
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA application_id = %d", ApplicationID)); err != nil {
			return fmt.Errorf("store: stamping application ID: %w", err)
		}
	} else {
		var gotID int32
		if err := db.QueryRowContext(ctx, "PRAGMA application_id").Scan(&gotID); err != nil {
			return fmt.Errorf("store: reading application ID: %w", err)
		}

		if gotID != ApplicationID {
			return fmt.Errorf("%w: got %d, want %d", ErrIdentityMismatch, gotID, ApplicationID)
		}
	}

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("store: reading schema version: %w", err)
	}

	return migrate(ctx, db, version, logger)
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.logger.Debug("closing credential database")

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}

	return nil
}

// SchemaVersion reports the file's current PRAGMA user_version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("store: reading schema version: %w", err)
	}

	return version, nil
}
