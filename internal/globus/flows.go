package globus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
)

// DeviceAuth holds the device authorization fields the CLI shows the user.
type DeviceAuth struct {
	UserCode        string
	VerificationURI string
}

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// shutdownTimeout bounds callback server drain and header reads.
const shutdownTimeout = 5 * time.Second

// callbackResult carries the authorization code or error out of the
// callback handler.
type callbackResult struct {
	code string
	err  error
}

// Login drives the given flow to completion, requesting refresh-capable
// grants for the configured scopes, and persists the resulting token set.
//
// display is called with the verification URL and user code during the
// device-code flow; openURL is called with the authorization URL during the
// browser flow (a failed launch falls back to printing the URL on stderr).
//
// Any provider-side failure collapses to ErrAuthFailure; detail is logged
// at debug level only. No automatic retry.
func (m *Manager) Login(ctx context.Context, flow Flow, display func(DeviceAuth), openURL func(string) error) error {
	var (
		tok *oauth2.Token
		err error
	)

	switch flow {
	case FlowBrowser:
		tok, err = m.browserLogin(ctx, openURL)
	case FlowDeviceCode:
		tok, err = m.deviceLogin(ctx, display)
	default:
		return fmt.Errorf("globus: unknown flow %v", flow)
	}

	if err != nil {
		m.logger.Debug("login flow failed", "flow", flow.String(), "error", err.Error())
		return ErrAuthFailure
	}

	if err := m.persist(ctx, tokenSetFromOAuth(tok, m.now())); err != nil {
		return fmt.Errorf("globus: persisting session: %w", err)
	}

	m.logger.Info("login successful", "flow", flow.String())

	return nil
}

// deviceLogin implements the device authorization flow:
// request a device code, show it to the user, poll until authorized.
func (m *Manager) deviceLogin(ctx context.Context, display func(DeviceAuth)) (*oauth2.Token, error) {
	cfg := m.oauthConfig()

	m.logger.Debug("starting device code flow")

	da, err := cfg.DeviceAuth(ctx, oauth2.SetAuthURLParam("access_type", "offline"))
	if err != nil {
		return nil, fmt.Errorf("device auth request: %w", err)
	}

	m.logger.Debug("device code received, waiting for user authorization")

	display(DeviceAuth{
		UserCode:        da.UserCode,
		VerificationURI: da.VerificationURI,
	})

	tok, err := cfg.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("device code authorization: %w", err)
	}

	return tok, nil
}

// browserLogin implements the authorization code + PKCE flow:
// bind a localhost callback server on a random port, open the browser,
// receive the code, exchange it.
func (m *Manager) browserLogin(ctx context.Context, openURL func(string) error) (*oauth2.Token, error) {
	cfg := m.oauthConfig()

	m.logger.Debug("starting browser flow (authorization code + PKCE)")

	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()

	srv, port, err := m.startCallbackServer(ctx, mux, resultCh)
	if err != nil {
		return nil, err
	}

	defer m.shutdownCallbackServer(srv)

	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	verifier := oauth2.GenerateVerifier()

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state token: %w", err)
	}

	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		handleCallback(w, r, state, resultCh)
	})

	authorizeURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	m.launchBrowser(authorizeURL, openURL)

	code, err := waitForCallback(ctx, resultCh)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("received authorization code, exchanging for tokens")

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	return tok, nil
}

// startCallbackServer binds 127.0.0.1:0 and serves the mux.
func (m *Manager) startCallbackServer(
	ctx context.Context,
	mux *http.ServeMux,
	resultCh chan<- callbackResult,
) (*http.Server, int, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, fmt.Errorf("binding localhost listener: %w", err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return nil, 0, errors.New("listener address is not TCP")
	}

	port := tcpAddr.Port
	m.logger.Debug("callback server listening", "port", port)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			resultCh <- callbackResult{err: fmt.Errorf("callback server: %w", serveErr)}
		}
	}()

	return srv, port, nil
}

// handleCallback validates state, extracts the code, and hands it back.
func handleCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	if r.URL.Query().Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		resultCh <- callbackResult{err: errors.New("state mismatch (possible CSRF)")}

		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		desc := r.URL.Query().Get("error_description")
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("authorization failed: %s: %s", errParam, desc)}

		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		resultCh <- callbackResult{err: errors.New("callback missing authorization code")}

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Authentication successful</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
	resultCh <- callbackResult{code: code}
}

// shutdownCallbackServer drains the callback server.
func (m *Manager) shutdownCallbackServer(srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		m.logger.Warn("callback server shutdown error", "error", err.Error())
	}
}

// launchBrowser opens the authorization URL, falling back to printing it.
func (m *Manager) launchBrowser(authorizeURL string, openURL func(string) error) {
	m.logger.Debug("opening browser for authorization")

	if err := openURL(authorizeURL); err != nil {
		m.logger.Warn("failed to open browser, printing URL", "error", err.Error())
		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authorizeURL)
	}
}

// waitForCallback blocks until the callback fires or ctx is canceled.
func waitForCallback(ctx context.Context, resultCh <-chan callbackResult) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("browser auth canceled: %w", ctx.Err())
	}
}

// generateState produces a random hex string for the OAuth2 state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
