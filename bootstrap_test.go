package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanford-rc/acp-go/internal/config"
	"github.com/stanford-rc/acp-go/internal/globus"
	"github.com/stanford-rc/acp-go/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// seedValidSession writes a token set covering the default scopes, with a
// far-future expiry, straight into the store.
func seedValidSession(t *testing.T, st *store.Store) {
	t.Helper()

	raw := map[string]json.RawMessage{
		"auth.globus.org": json.RawMessage(`{
			"resource_server": "auth.globus.org",
			"access_token": "auth-at",
			"scope": "openid profile",
			"expires_at_seconds": 33000000000
		}`),
		"transfer.api.globus.org": json.RawMessage(`{
			"resource_server": "transfer.api.globus.org",
			"access_token": "transfer-at",
			"scope": "urn:globus:auth:scope:transfer.api.globus.org:all",
			"expires_at_seconds": 33000000000
		}`),
	}
	require.NoError(t, st.WriteTokens(context.Background(), raw))
}

func newBootstrapManager(t *testing.T) (*globus.Manager, *store.Store) {
	t.Helper()

	ctx := context.Background()

	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "db.sqlite3"), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.DefaultConfig()

	return globus.NewManager(st, cfg.ClientID, cfg.Scopes, quietLogger()), st
}

func TestEnsureLogin_ValidSessionNoPrompt(t *testing.T) {
	mgr, st := newBootstrapManager(t)
	seedValidSession(t, st)

	// No input is provided: a prompt would fail the test by blocking on an
	// empty reader, but a valid session never prompts.
	err := ensureLogin(context.Background(), mgr, globus.Capabilities{Interactive: true}, strings.NewReader(""))
	require.NoError(t, err)
}

func TestEnsureLogin_NonInteractiveFailsFast(t *testing.T) {
	mgr, _ := newBootstrapManager(t)

	err := ensureLogin(context.Background(), mgr, globus.Capabilities{Interactive: false}, strings.NewReader(""))
	require.ErrorIs(t, err, globus.ErrInteractiveRequired)
}

func TestTransferScope(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, "urn:globus:auth:scope:transfer.api.globus.org:all", transferScope(cfg))

	cfg.Scopes = []string{"openid", "https://auth.globus.org/scopes/example/transfer.api.globus.org_all"}
	assert.Equal(t, cfg.Scopes[1], transferScope(cfg))

	cfg.Scopes = []string{"openid"}
	assert.Equal(t, "urn:globus:auth:scope:transfer.api.globus.org:all", transferScope(cfg))
}
