package token

import (
	"time"

	"golang.org/x/oauth2"
)

const bearerType = "Bearer"

// Pair is the token payload returned by the login, register and refresh
// endpoints. Refresh is empty when the server does not rotate it.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// OAuth2 converts the pair into an oauth2.Token. Expiry is read from the
// access token's exp claim when it can be decoded.
func (p Pair) OAuth2() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  p.Access,
		RefreshToken: p.Refresh,
		TokenType:    bearerType,
	}
	if claims, err := ParseClaims(p.Access); err == nil {
		t.Expiry = claims.ExpiresAt
	}
	return t
}

// Bearer wraps an access token so it can be attached with SetAuthHeader.
func Bearer(access string) *oauth2.Token {
	return &oauth2.Token{AccessToken: access, TokenType: bearerType}
}

// ExpiresIn is the time left before the access token's exp claim, or zero
// when it is already expired or cannot be decoded.
func ExpiresIn(access string, now time.Time) time.Duration {
	claims, err := ParseClaims(access)
	if err != nil || claims.ExpiresAt.IsZero() {
		return 0
	}
	if d := claims.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
