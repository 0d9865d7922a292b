package auth

import (
	"net/http"

	jwtauth "github.com/Iviolo/SkinCycling-Coach/internal/auth/jwt"
)

// Middleware enforces bearer-token authentication on incoming requests.
type Middleware struct {
	inner jwtauth.Middleware
}

// NewMiddleware constructs Middleware. Liveness and metrics endpoints stay public.
func NewMiddleware(cfg Config) Middleware {
	skipper := func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
	}
	return Middleware{inner: jwtauth.NewMiddleware(cfg, skipper)}
}

// Wrap attaches authentication handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return m.inner.Wrap(next)
}
