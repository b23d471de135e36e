package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "db.sqlite3"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestOpen_NewFileStampsIdentityAndMigrates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.sqlite3")

	s, err := Open(ctx, path, testLogger())
	require.NoError(t, err)

	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)

	require.NoError(t, s.Close())

	// Read the stamped identity back through a raw connection.
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var appID int32
	require.NoError(t, db.QueryRow("PRAGMA application_id").Scan(&appID))
	assert.Equal(t, ApplicationID, appID)
}

func TestOpen_ReopenExistingFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.sqlite3")

	s, err := Open(ctx, path, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Second open verifies identity and finds nothing to migrate.
	s, err = Open(ctx, path, testLogger())
	require.NoError(t, err)
	defer s.Close()

	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)
}

func TestOpen_ForeignIdentityRejectedUnchanged(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "other.sqlite3")

	// A database created by some other tool.
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA application_id = 42")
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE unrelated (x INTEGER)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = Open(ctx, path, testLogger())
	require.ErrorIs(t, err, ErrIdentityMismatch)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected file must not be modified")
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	// Re-running from the already-current version must be a no-op: no
	// duplicate table creation, no version double-advance.
	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)

	require.NoError(t, migrate(ctx, s.db, version, testLogger()))

	again, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, version, again)
}

func TestMigrate_FutureVersionLeftUntouched(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.sqlite3")

	// A file stamped with our identity but a version from a newer build.
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(fmt.Sprintf("PRAGMA application_id = %d", ApplicationID))
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(ctx, path, testLogger())
	require.NoError(t, err)
	defer s.Close()

	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 99, version, "future versions are not rolled back")
}

func TestOpen_CreatesCredentialTables(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, table := range []string{"cred_aws", "cred_globus"} {
		var count int
		err := s.db.QueryRowContext(ctx,
			"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}
}
