package store

import "errors"

// Sentinel errors for store failures.
// Use errors.Is(err, store.ErrIdentityMismatch) to check.
var (
	// ErrPathConflict means the resolved store directory exists but is a
	// regular file. The caller must move the file out of the way.
	ErrPathConflict = errors.New("store: path exists but is not a directory")

	// ErrIdentityMismatch means the database file exists but was not created
	// by acp. The file is never modified after this check fails.
	ErrIdentityMismatch = errors.New("store: database application ID mismatch")

	// ErrMigration means a schema migration step failed. The failed step is
	// rolled back in full; the version marker never runs ahead of the schema.
	ErrMigration = errors.New("store: schema migration failed")

	// ErrTokenDecode means a stored token value is not valid JSON. The whole
	// read fails; no partial token mapping is ever returned.
	ErrTokenDecode = errors.New("store: stored token is not valid JSON")

	// ErrNoCredential means no AWS credential row exists for the given key.
	ErrNoCredential = errors.New("store: no such credential")
)
