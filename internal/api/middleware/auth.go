package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/newscope/newscope/internal/api/response"
)

// Auth checks the shared-secret API key. An empty configured key
// disables the check entirely.
type Auth struct {
	apiKey string
}

// NewAuth creates the Auth middleware.
func NewAuth(apiKey string) *Auth {
	return &Auth{apiKey: apiKey}
}

// Authenticate requires a matching X-API-Key header. Comparison is
// constant-time; a missing header fails like a wrong one.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		provided := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(a.apiKey)) != 1 {
			response.Error(w, http.StatusForbidden,
				"INVALID_API_KEY", "Invalid or missing API key", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
