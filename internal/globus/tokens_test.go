package globus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestToken_Scopes(t *testing.T) {
	tok := Token{Scope: "openid profile urn:globus:auth:scope:transfer.api.globus.org:all"}

	assert.Len(t, tok.Scopes(), 3)
	assert.True(t, tok.HasScope("profile"))
	assert.False(t, tok.HasScope("email"))
}

func TestToken_Expired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	assert.False(t, Token{ExpiresAt: now.Add(time.Minute).Unix()}.Expired(now))
	assert.True(t, Token{ExpiresAt: now.Add(-time.Minute).Unix()}.Expired(now))
	assert.False(t, Token{}.Expired(now), "zero expiry never expires")
}

func TestTokenSet_EncodeDecodeRoundTrip(t *testing.T) {
	ts := TokenSet{
		"auth.globus.org": {
			ResourceServer: "auth.globus.org",
			AccessToken:    "at",
			RefreshToken:   "rt",
			IDToken:        "idt",
			Scope:          "openid",
			TokenType:      "Bearer",
			ExpiresAt:      1_700_003_600,
		},
	}

	encoded, err := ts.encode()
	require.NoError(t, err)

	decoded, err := decodeTokenSet(encoded)
	require.NoError(t, err)
	assert.Equal(t, ts, decoded)
}

func TestTokenSetFromOAuth(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tok := (&oauth2.Token{
		AccessToken:  "auth-at",
		RefreshToken: "auth-rt",
		TokenType:    "Bearer",
		Expiry:       now.Add(time.Hour),
	}).WithExtra(map[string]any{
		"resource_server": "auth.globus.org",
		"scope":           "openid profile",
		"id_token":        "the-id-token",
		"other_tokens": []any{
			map[string]any{
				"resource_server": "transfer.api.globus.org",
				"access_token":    "transfer-at",
				"refresh_token":   "transfer-rt",
				"scope":           "urn:globus:auth:scope:transfer.api.globus.org:all",
				"token_type":      "Bearer",
				"expires_in":      float64(3600),
			},
		},
	})

	ts := tokenSetFromOAuth(tok, now)
	require.Len(t, ts, 2)

	auth := ts["auth.globus.org"]
	assert.Equal(t, "auth-at", auth.AccessToken)
	assert.Equal(t, "the-id-token", auth.IDToken)
	assert.Equal(t, now.Add(time.Hour).Unix(), auth.ExpiresAt)

	transfer := ts["transfer.api.globus.org"]
	assert.Equal(t, "transfer-at", transfer.AccessToken)
	assert.Equal(t, "transfer-rt", transfer.RefreshToken)
	assert.Equal(t, now.Add(time.Hour).Unix(), transfer.ExpiresAt)
}

func TestTokenSetFromOAuth_SkipsMalformedOtherTokens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tok := (&oauth2.Token{AccessToken: "at"}).WithExtra(map[string]any{
		"resource_server": "auth.globus.org",
		"other_tokens": []any{
			"not a map",
			map[string]any{"scope": "x"}, // no resource server or access token
		},
	})

	ts := tokenSetFromOAuth(tok, now)
	assert.Len(t, ts, 1)
}
