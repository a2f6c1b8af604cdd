package account

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is a bearer token and the time after which it must not be used.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Valid returns true if the credential can still be used at time now.
func (c *Credential) Valid(now time.Time) bool {
	return c != nil && c.Token != "" && now.Before(c.ExpiresAt)
}

// Claims decodes the token's JWT claims without verifying the signature. The client never relies
// on the claims for authorization; they are only used for diagnostics. Returns nil if the token is
// not a JWT.
func (c *Credential) Claims() jwt.MapClaims {
	if c == nil {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Token, claims); err != nil {
		return nil
	}
	return claims
}

// Subject returns the "sub" claim of the token, if any.
func (c *Credential) Subject() string {
	claims := c.Claims()
	if claims == nil {
		return ""
	}
	subject, _ := claims.GetSubject()
	return subject
}
