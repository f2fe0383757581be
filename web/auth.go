package web

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"livescore-client/guards"
)

// bearerSession is the guard view of one request's bearer token.
type bearerSession struct {
	authenticated bool
	role          string
}

func (b bearerSession) IsAuthenticated() bool { return b.authenticated }
func (b bearerSession) IsAdmin() bool         { return b.authenticated && b.role == "admin" }

// sessionFor verifies the HS256 bearer token of r against the relay secret.
// A missing, badly signed or expired token is an anonymous session.
func (s *Server) sessionFor(r *http.Request) guards.Authenticator {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return bearerSession{}
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.config.RelayJWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return bearerSession{}
	}

	role, _ := claims["role"].(string)
	return bearerSession{authenticated: true, role: role}
}

// denyEvent answers a refused event POST with the relay's JSON envelope.
func denyEvent(w http.ResponseWriter, r *http.Request, d guards.Decision) {
	status, msg := http.StatusUnauthorized, "authentication required"
	if d.Redirect == guards.UnauthorizedPath {
		status, msg = http.StatusForbidden, "admin role required"
	}
	writeJSON(w, status, eventResponse{Message: msg})
}

// adminOnly wraps h with the admin guard when a relay secret is configured.
func (s *Server) adminOnly(h http.Handler) http.Handler {
	if s.config.RelayJWTSecret == "" {
		return h
	}
	return guards.RequestMiddleware(guards.Admin, s.sessionFor, denyEvent)(h)
}
