package client

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenAuthorizer derives the signed-in state from the API token.
//
// The token is only inspected, never verified: the server is the authority
// and rejects bad tokens itself. A JWT is considered authorized until its
// exp claim passes. Opaque tokens are authorized while non-empty.
type TokenAuthorizer struct {
	Token string
}

// Authorized reports whether the token is usable at now.
func (a TokenAuthorizer) Authorized(now time.Time) bool {
	token := strings.TrimSpace(a.Token)
	if token == "" {
		return false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return strings.Count(token, ".") != 2
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return now.Before(claims.ExpiresAt.Time)
}

// ExpiresAt returns the token's exp claim, if it is a JWT carrying one.
func (a TokenAuthorizer) ExpiresAt() (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(a.Token), claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
