package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PutAWSCredential stores an AWS access key and secret, replacing any
// existing secret for the same key.
func (s *Store) PutAWSCredential(ctx context.Context, key, secret string) error {
	const upsert = `INSERT INTO cred_aws (key, secret) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET secret = excluded.secret`

	if _, err := s.db.ExecContext(ctx, upsert, key, secret); err != nil {
		return fmt.Errorf("store: storing AWS credential %q: %w", key, err)
	}

	s.logger.Debug("stored AWS credential", "key", key)

	return nil
}

// AWSCredential returns the secret stored for an AWS access key.
// Returns ErrNoCredential if the key is unknown.
func (s *Store) AWSCredential(ctx context.Context, key string) (string, error) {
	var secret string

	err := s.db.QueryRowContext(ctx, "SELECT secret FROM cred_aws WHERE key = ?", key).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %q", ErrNoCredential, key)
	}

	if err != nil {
		return "", fmt.Errorf("store: reading AWS credential %q: %w", key, err)
	}

	return secret, nil
}

// DeleteAWSCredential removes an AWS credential. Deleting an unknown key
// succeeds silently.
func (s *Store) DeleteAWSCredential(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cred_aws WHERE key = ?", key); err != nil {
		return fmt.Errorf("store: deleting AWS credential %q: %w", key, err)
	}

	s.logger.Debug("deleted AWS credential", "key", key)

	return nil
}
