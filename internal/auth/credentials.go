package auth

import (
	"encoding/json"
	"time"

	"golang.org/x/oauth2"
)

// Credentials holds the OAuth token material issued by the video platform.
// Provider-specific auxiliary fields are preserved opaquely in Extra so a
// re-issued container round-trips everything the provider sent.
type Credentials struct {
	AccessToken  string                     `json:"access_token"`
	RefreshToken string                     `json:"refresh_token,omitempty"`
	TokenType    string                     `json:"token_type,omitempty"`
	Expiry       time.Time                  `json:"expiry,omitempty"`
	Extra        map[string]json.RawMessage `json:"extra,omitempty"`
}

// Valid reports whether the record may be used to construct an API client.
// A record lacking an access token is invalid.
func (c Credentials) Valid() bool {
	return c.AccessToken != ""
}

// ExpiresWithin reports whether the access token is expired or will expire
// within the provided margin. A zero expiry is treated as already expired.
func (c Credentials) ExpiresWithin(margin time.Duration, now time.Time) bool {
	if c.Expiry.IsZero() {
		return true
	}
	return now.Add(margin).After(c.Expiry)
}

// Merge folds freshly refreshed token material into the record. The original
// refresh token survives when the refresh response omits one.
func (c Credentials) Merge(fresh Credentials) Credentials {
	merged := fresh
	if merged.RefreshToken == "" {
		merged.RefreshToken = c.RefreshToken
	}
	if merged.TokenType == "" {
		merged.TokenType = c.TokenType
	}
	if merged.Extra == nil {
		merged.Extra = c.Extra
	}
	return merged
}

// Token converts the record into an oauth2 token for API client construction.
func (c Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// FromToken builds a credential record from an oauth2 token.
func FromToken(token *oauth2.Token) Credentials {
	if token == nil {
		return Credentials{}
	}
	return Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}
}
