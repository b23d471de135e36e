package globus

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Token is one stored Globus token, scoped to a single resource server.
// Globus Auth issues one token per resource server in a single grant; the
// set is stored keyed by resource server name.
type Token struct {
	ResourceServer string `json:"resource_server"`
	AccessToken    string `json:"access_token"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	IDToken        string `json:"id_token,omitempty"`
	Scope          string `json:"scope"`
	TokenType      string `json:"token_type,omitempty"`
	ExpiresAt      int64  `json:"expires_at_seconds"`
}

// Scopes splits the space-separated scope string.
func (t Token) Scopes() []string {
	return strings.Fields(t.Scope)
}

// HasScope reports whether the token covers the given scope.
func (t Token) HasScope(scope string) bool {
	return slices.Contains(t.Scopes(), scope)
}

// Expired reports whether the access token's lifetime has passed.
func (t Token) Expired(now time.Time) bool {
	return t.ExpiresAt != 0 && now.Unix() >= t.ExpiresAt
}

// TokenSet is a full session's tokens, keyed by resource server.
type TokenSet map[string]Token

// ByScope returns the token covering scope, if any.
func (ts TokenSet) ByScope(scope string) (Token, bool) {
	for _, t := range ts {
		if t.HasScope(scope) {
			return t, true
		}
	}

	return Token{}, false
}

// encode serializes the set into the store's opaque-blob mapping.
func (ts TokenSet) encode() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(ts))

	for key, t := range ts {
		data, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("globus: encoding token for %s: %w", key, err)
		}

		out[key] = data
	}

	return out, nil
}

// decodeTokenSet parses stored blobs back into a TokenSet.
func decodeTokenSet(raw map[string]json.RawMessage) (TokenSet, error) {
	ts := make(TokenSet, len(raw))

	for key, data := range raw {
		var t Token
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("globus: decoding token for %s: %w", key, err)
		}

		ts[key] = t
	}

	return ts, nil
}

// tokenSetFromOAuth converts a Globus token response into a TokenSet.
// The response carries the primary token plus one entry per additional
// resource server in the "other_tokens" extra.
func tokenSetFromOAuth(tok *oauth2.Token, now time.Time) TokenSet {
	ts := make(TokenSet)

	primary := Token{
		ResourceServer: extraString(tok, "resource_server"),
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		IDToken:        extraString(tok, "id_token"),
		Scope:          extraString(tok, "scope"),
		TokenType:      tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		primary.ExpiresAt = tok.Expiry.Unix()
	}

	if primary.ResourceServer == "" {
		primary.ResourceServer = "auth.globus.org"
	}

	ts[primary.ResourceServer] = primary

	others, _ := tok.Extra("other_tokens").([]any)
	for _, entry := range others {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		other := Token{
			ResourceServer: stringField(fields, "resource_server"),
			AccessToken:    stringField(fields, "access_token"),
			RefreshToken:   stringField(fields, "refresh_token"),
			IDToken:        stringField(fields, "id_token"),
			Scope:          stringField(fields, "scope"),
			TokenType:      stringField(fields, "token_type"),
		}

		if expiresIn, ok := fields["expires_in"].(float64); ok {
			other.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second).Unix()
		}

		if other.ResourceServer == "" || other.AccessToken == "" {
			continue
		}

		ts[other.ResourceServer] = other
	}

	return ts
}

func extraString(tok *oauth2.Token, key string) string {
	s, _ := tok.Extra(key).(string)
	return s
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}
