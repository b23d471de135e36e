package globus

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated user, as claimed by the stored id-token.
type Identity struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Subject  string `json:"sub"`
}

// Identity decodes the stored id-token's claims. The parse is unverified:
// the token came from our own token exchange over TLS and is used for
// display only, never for authorization decisions.
//
// Returns ErrNotLoggedIn when no session or no id-token is stored.
func (m *Manager) Identity(ctx context.Context) (*Identity, error) {
	raw, err := m.store.ReadTokens(ctx)
	if err != nil {
		return nil, err
	}

	ts, err := decodeTokenSet(raw)
	if err != nil {
		return nil, err
	}

	idToken := ""

	for _, t := range ts {
		if t.IDToken != "" {
			idToken = t.IDToken
			break
		}
	}

	if idToken == "" {
		return nil, ErrNotLoggedIn
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("globus: parsing id token: %w", err)
	}

	id := &Identity{
		Name:     claimString(claims, "name"),
		Username: claimString(claims, "preferred_username"),
		Subject:  claimString(claims, "sub"),
	}

	return id, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
