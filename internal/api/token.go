package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the subset of access token claims the client displays. The
// signature is not checked; the server remains the authority.
type TokenClaims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// Expired reports whether the token expired before now.
func (c TokenClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// InspectToken decodes a JWT access token without verifying it. Opaque
// (non-JWT) tokens return an error.
func InspectToken(token string) (TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenClaims{}, fmt.Errorf("token is empty")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenClaims{}, fmt.Errorf("parse token: %w", err)
	}

	var out TokenClaims
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if out.Subject == "" {
		if id, ok := claims["user_id"].(string); ok {
			out.Subject = id
		}
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
