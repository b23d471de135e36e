package globus

import (
	"context"
	"fmt"
)

// ScopeTokenSource returns a token source yielding access tokens that cover
// the given scope, refreshing (and re-persisting) expired ones on demand.
// The transfer client consumes it as its bearer token provider.
func (m *Manager) ScopeTokenSource(scope string) *ScopedSource {
	return &ScopedSource{m: m, scope: scope}
}

// ScopedSource provides bearer tokens for one scope out of the stored
// session.
type ScopedSource struct {
	m     *Manager
	scope string
}

// Token returns a currently-valid access token for the source's scope.
// Returns ErrNotLoggedIn when the stored session has no covering grant.
func (s *ScopedSource) Token(ctx context.Context) (string, error) {
	raw, err := s.m.store.ReadTokens(ctx)
	if err != nil {
		return "", err
	}

	ts, err := decodeTokenSet(raw)
	if err != nil {
		return "", err
	}

	tok, ok := ts.ByScope(s.scope)
	if !ok {
		return "", fmt.Errorf("%w: no grant for scope %s", ErrNotLoggedIn, s.scope)
	}

	if tok.Expired(s.m.now()) {
		tok, err = s.m.refresh(ctx, tok)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrNotLoggedIn, err)
		}
	}

	return tok.AccessToken, nil
}
