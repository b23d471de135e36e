// Package transfer is a thin client for the Globus Transfer API, covering
// only what collection selection needs: recently-used endpoint search and
// endpoint lookup by ID.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultBaseURL is the production Globus Transfer API root.
const DefaultBaseURL = "https://transfer.api.globus.org/v0.10"

// Retry tuning for transient failures.
const (
	maxRetries  = 3
	baseBackoff = 500 * time.Millisecond
	userAgent   = "acp/0.1"
)

// Sentinel errors for API status classification.
// Use errors.Is(err, transfer.ErrNotFound) to check.
var (
	ErrNotFound     = errors.New("transfer: not found")
	ErrUnauthorized = errors.New("transfer: unauthorized")
	ErrThrottled    = errors.New("transfer: throttled")
	ErrServerError  = errors.New("transfer: server error")
)

// TokenSource provides OAuth2 bearer tokens for the Transfer API. Defined
// at the consumer; the globus package provides the real implementation.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is an HTTP client for the Globus Transfer API with bounded
// exponential-backoff retry on transient failures.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
}

// NewClient creates a Transfer API client.
// baseURL is typically DefaultBaseURL.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
	}
}

// get performs an authenticated GET and decodes the JSON response into out,
// retrying throttled responses, server errors, and network failures.
func (c *Client) get(ctx context.Context, path string, out any) error {
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(baseBackoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.doOnce(ctx, path, out)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrThrottled) || errors.Is(err, ErrServerError) || isNetworkError(err) {
			c.logger.Warn("retrying transfer API request", "path", path, "error", err.Error())
			return retry.RetryableError(err)
		}

		return err
	})
}

// doOnce performs a single request/decode cycle.
func (c *Client) doOnce(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("transfer: building request: %w", err)
	}

	tok, err := c.token.Token(ctx)
	if err != nil {
		return fmt.Errorf("transfer: obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &networkError{err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		// Body is API error JSON; keep it for debug logs only.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Debug("transfer API error",
			"path", path, "status", resp.StatusCode, "body", string(body))

		return fmt.Errorf("%w: HTTP %d", err, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("transfer: decoding response: %w", err)
	}

	return nil
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx.
func classifyStatus(code int) error {
	switch {
	case code >= http.StatusOK && code < http.StatusMultipleChoices:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusTooManyRequests:
		return ErrThrottled
	case code >= http.StatusInternalServerError:
		return ErrServerError
	default:
		return fmt.Errorf("transfer: unexpected HTTP status %d", code)
	}
}

// networkError marks transport-level failures as retryable.
type networkError struct {
	err error
}

func (e *networkError) Error() string {
	return fmt.Sprintf("transfer: network error: %v", e.err)
}

func (e *networkError) Unwrap() error {
	return e.err
}

func isNetworkError(err error) bool {
	var ne *networkError
	return errors.As(err, &ne)
}
