// Package auth adapts bearer-token authentication to the skincycle API.
package auth

import (
	"context"

	jwtauth "github.com/Iviolo/SkinCycling-Coach/internal/auth/jwt"
)

// Claims is the verified token payload.
type Claims = jwtauth.Claims

// Config holds token verification parameters.
type Config = jwtauth.Config

// ParseClaims validates token.
func ParseClaims(token string, cfg Config) (*Claims, error) {
	return jwtauth.Parse(token, cfg)
}

// WithClaims stores the claims in the request context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return jwtauth.WithClaims(ctx, claims)
}

// FromContext retrieves claims from context.
func FromContext(ctx context.Context) (*Claims, bool) {
	return jwtauth.FromContext(ctx)
}

// ProfileID returns the profile the request acts for, which is the token subject.
func ProfileID(ctx context.Context) (string, bool) {
	claims, ok := FromContext(ctx)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
