// Package globus manages the Globus Auth session: deciding whether a cached
// session is still usable, picking the right login flow for the current
// environment, driving that flow, and persisting the result in the store.
package globus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/oauth2"

	"github.com/stanford-rc/acp-go/internal/store"
)

// Globus Auth OAuth2 endpoints.
const (
	authURL       = "https://auth.globus.org/v2/oauth2/authorize"
	tokenURL      = "https://auth.globus.org/v2/oauth2/token"
	deviceAuthURL = "https://auth.globus.org/v2/oauth2/device_authorization"
)

// Environment variables probed for flow selection.
const (
	envSSHTTY  = "SSH_TTY"
	envDisplay = "DISPLAY"
)

// TokenStore is the persistence surface the session manager needs.
// *store.Store satisfies it; tests supply in-memory fakes.
type TokenStore interface {
	ReadTokens(ctx context.Context) (map[string]json.RawMessage, error)
	WriteTokens(ctx context.Context, tokens map[string]json.RawMessage) error
	ClearTokens(ctx context.Context) error
}

// Manager decides whether a login is needed and drives the chosen flow.
// It borrows the store handle; it never owns the store's lifecycle.
type Manager struct {
	store    TokenStore
	clientID string
	scopes   []string
	endpoint oauth2.Endpoint
	logger   *slog.Logger

	// now is replaceable for expiry tests.
	now func() time.Time
}

// NewManager creates a session manager bound to the given store.
// scopes is the required grant set; a cached session missing any of them
// is considered stale.
func NewManager(st TokenStore, clientID string, scopes []string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store:    st,
		clientID: clientID,
		scopes:   scopes,
		endpoint: oauth2.Endpoint{
			AuthURL:       authURL,
			TokenURL:      tokenURL,
			DeviceAuthURL: deviceAuthURL,
		},
		logger: logger,
		now:    time.Now,
	}
}

// oauthConfig builds the oauth2 config for both flows.
func (m *Manager) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID: m.clientID,
		Scopes:   m.scopes,
		Endpoint: m.endpoint,
	}
}

// NeedsLogin reports whether a fresh login is required.
//
// True when stored tokens are missing or corrupt, when any required scope
// has no covering grant, or when an expired grant cannot be refreshed.
// A successful silent refresh rewrites the refreshed token to the store,
// so callers must treat this call as potentially mutating. The result is
// computed fresh on every call.
func (m *Manager) NeedsLogin(ctx context.Context) (bool, error) {
	raw, err := m.store.ReadTokens(ctx)
	if errors.Is(err, store.ErrTokenDecode) {
		// Corrupt storage means the session is unusable; a fresh login
		// (preceded by Logout) rewrites it.
		m.logger.Warn("stored tokens are corrupt, login required")
		return true, nil
	}

	if err != nil {
		return false, err
	}

	if len(raw) == 0 {
		m.logger.Debug("no stored tokens, login required")
		return true, nil
	}

	ts, err := decodeTokenSet(raw)
	if err != nil {
		m.logger.Warn("stored tokens failed to parse, login required")
		return true, nil //nolint:nilerr // parse failure = login required
	}

	for _, scope := range m.scopes {
		tok, ok := ts.ByScope(scope)
		if !ok {
			m.logger.Debug("required scope not granted, login required", "scope", scope)
			return true, nil
		}

		if !tok.Expired(m.now()) {
			continue
		}

		refreshed, err := m.refresh(ctx, tok)
		if err != nil {
			m.logger.Debug("token refresh failed, login required",
				"resource_server", tok.ResourceServer, "error", err.Error())

			return true, nil //nolint:nilerr // refresh failure = login required
		}

		ts[refreshed.ResourceServer] = refreshed
	}

	return false, nil
}

// refresh exchanges a refresh token for a fresh access token and persists
// the updated record. The refresh token itself is retained unless the
// provider rotates it.
func (m *Manager) refresh(ctx context.Context, tok Token) (Token, error) {
	if tok.RefreshToken == "" {
		return Token{}, fmt.Errorf("globus: no refresh token for %s", tok.ResourceServer)
	}

	m.logger.Debug("refreshing token", "resource_server", tok.ResourceServer)

	src := m.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})

	fresh, err := src.Token()
	if err != nil {
		return Token{}, fmt.Errorf("globus: refreshing token for %s: %w", tok.ResourceServer, err)
	}

	tok.AccessToken = fresh.AccessToken
	if !fresh.Expiry.IsZero() {
		tok.ExpiresAt = fresh.Expiry.Unix()
	}

	if fresh.RefreshToken != "" {
		tok.RefreshToken = fresh.RefreshToken
	}

	if err := m.persist(ctx, TokenSet{tok.ResourceServer: tok}); err != nil {
		return Token{}, err
	}

	return tok, nil
}

// persist merges a token set into the store.
func (m *Manager) persist(ctx context.Context, ts TokenSet) error {
	encoded, err := ts.encode()
	if err != nil {
		return err
	}

	return m.store.WriteTokens(ctx, encoded)
}

// Logout invalidates the cached session. Called before re-attempting login
// so a flow never sees stale partial state.
func (m *Manager) Logout(ctx context.Context) error {
	m.logger.Debug("clearing cached session")
	return m.store.ClearTokens(ctx)
}

// Flow is a login flow variant.
type Flow int

const (
	// FlowBrowser is the authorization code + PKCE flow with a local
	// callback server and browser launch.
	FlowBrowser Flow = iota + 1

	// FlowDeviceCode is the headless device authorization flow: the user
	// visits a printed URL and enters a printed code. No local browser,
	// no local callback listener.
	FlowDeviceCode
)

func (f Flow) String() string {
	switch f {
	case FlowBrowser:
		return "browser"
	case FlowDeviceCode:
		return "device-code"
	default:
		return "unknown"
	}
}

// Capabilities describes what the current environment can support during a
// login attempt. Probed once per attempt.
type Capabilities struct {
	// Interactive is whether stdout is attached to a terminal.
	Interactive bool

	// RemoteShell is whether a remote-shell indicator (SSH_TTY) is present.
	RemoteShell bool

	// HasDisplay is whether a graphical display indicator (DISPLAY) is present.
	HasDisplay bool
}

// ProbeCapabilities inspects the process environment.
func ProbeCapabilities() Capabilities {
	return Capabilities{
		Interactive: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
		RemoteShell: os.Getenv(envSSHTTY) != "",
		HasDisplay:  os.Getenv(envDisplay) != "",
	}
}

// SelectFlow picks the login flow for the given capabilities.
//
// Not interactive: no flow can run, ErrInteractiveRequired. Local shells
// get the browser flow. Remote shells get the browser flow only when a
// forwarded display suggests a local browser exists; otherwise the
// device-code flow.
func SelectFlow(caps Capabilities) (Flow, error) {
	if !caps.Interactive {
		return 0, ErrInteractiveRequired
	}

	if caps.RemoteShell && !caps.HasDisplay {
		return FlowDeviceCode, nil
	}

	return FlowBrowser, nil
}
