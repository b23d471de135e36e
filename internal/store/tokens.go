package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// ReadTokens returns every row of the Globus token table as a mapping from
// token key to its JSON payload. Any row that fails to decode fails the
// whole call with ErrTokenDecode; this store never returns partial results.
func (s *Store) ReadTokens(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, json FROM cred_globus")
	if err != nil {
		return nil, fmt.Errorf("store: reading tokens: %w", err)
	}
	defer rows.Close()

	tokens := make(map[string]json.RawMessage)

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("store: scanning token row: %w", err)
		}

		if !json.Valid([]byte(value)) {
			return nil, fmt.Errorf("%w: key %q", ErrTokenDecode, key)
		}

		tokens[key] = json.RawMessage(value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: reading tokens: %w", err)
	}

	s.logger.Debug("read tokens from storage", "count", len(tokens))

	return tokens, nil
}

// WriteTokens upserts every entry of the mapping in one transaction: each
// key inserts a new row or fully replaces the existing one. Keys not in the
// mapping are left untouched; this is a merge, not a replace-all.
func (s *Store) WriteTokens(ctx context.Context, tokens map[string]json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: writing tokens: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const upsert = `INSERT INTO cred_globus (key, json) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET json = excluded.json`

	for key, value := range tokens {
		if _, err := tx.ExecContext(ctx, upsert, key, string(value)); err != nil {
			return fmt.Errorf("store: upserting token %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: writing tokens: %w", err)
	}

	s.logger.Debug("wrote tokens to storage", "count", len(tokens))

	return nil
}

// ClearTokens deletes every row of the Globus token table in one
// transaction. Clearing an already-empty table succeeds silently.
func (s *Store) ClearTokens(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: clearing tokens: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM cred_globus"); err != nil {
		return fmt.Errorf("store: clearing tokens: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: clearing tokens: %w", err)
	}

	s.logger.Debug("cleared token storage")

	return nil
}
