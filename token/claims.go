package token

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var ErrEmptyToken = errors.New("empty token")

// Claims is the subset of the access token payload the client displays.
// Values are decoded without verifying the signature; the server remains the
// only authority on whether a token is valid.
type Claims struct {
	Subject   string    // user_id for TeamTrack tokens, sub otherwise
	TokenType string    // "access" or "refresh"
	JTI       string    // Unique token ID
	IssuedAt  time.Time // Zero when absent
	ExpiresAt time.Time // Zero when absent
}

// Expired reports whether the exp claim is before now. Tokens without an exp
// claim never expire from the client's point of view.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ParseClaims decodes a JWT payload without signature verification.
func ParseClaims(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyToken
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(err, "token.ParseClaims ParseUnverified")
	}

	mc, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("token.ParseClaims: unexpected claims type")
	}

	c := &Claims{}
	c.TokenType, _ = mc["token_type"].(string)
	c.JTI, _ = mc["jti"].(string)
	c.Subject = subject(mc)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	return c, nil
}

func subject(mc jwtlib.MapClaims) string {
	switch v := mc["user_id"].(type) {
	case float64:
		return fmt.Sprintf("%d", int64(v))
	case string:
		return v
	}
	sub, _ := mc["sub"].(string)
	return sub
}
