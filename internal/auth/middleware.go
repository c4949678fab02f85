package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Realm is advertised in the WWW-Authenticate header of rejected requests.
const Realm = "coaching"

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// SkipProbes lets health checks and metric scrapes through unauthenticated.
func SkipProbes(r *http.Request) bool {
	return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
}

// Middleware rejects requests to the coaching API that do not carry a valid bearer token and
// stores the caller's claims on the request context for the handlers.
type Middleware struct {
	Config  Config
	Skipper Skipper
}

// NewMiddleware constructs a middleware with optional skipper.
func NewMiddleware(cfg Config, skipper Skipper) Middleware {
	return Middleware{Config: cfg, Skipper: skipper}
}

// Wrap wraps an http.Handler with authentication.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.parseRequest(r)
		if err != nil {
			unauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func (m Middleware) parseRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return nil, ErrInvalidToken
	}
	return Parse(strings.TrimSpace(token), m.Config)
}

// unauthorized writes the same problem body the API handlers use. Parse errors are not echoed
// back to the client.
func unauthorized(w http.ResponseWriter, err error) {
	code, detail := "invalid_token", ErrInvalidToken.Error()
	if errors.Is(err, ErrMissingToken) {
		code, detail = "missing_token", ErrMissingToken.Error()
	}

	w.Header().Set("WWW-Authenticate", `Bearer realm="`+Realm+`", error="`+code+`"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"type": code, "detail": detail})
}
