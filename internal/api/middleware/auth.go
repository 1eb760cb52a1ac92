package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kiranshivaraju/scenegen/internal/api/response"
)

const tokenPrefixLen = 8

// Auth checks Bearer tokens against a bcrypt hash.
type Auth struct {
	hash []byte
}

// NewAuth creates a new Auth middleware. An empty tokenHash disables
// authentication; callers are then identified by remote address.
func NewAuth(tokenHash string) *Auth {
	return &Auth{hash: []byte(tokenHash)}
}

// Authenticate validates the Bearer token and sets the client id in the
// request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(a.hash) == 0 {
			next.ServeHTTP(w, r.WithContext(setClientID(r.Context(), "ip:"+remoteHost(r))))
			return
		}

		rawToken := extractBearerToken(r)
		switch {
		case rawToken == "":
			unauthorized(w, "Missing or invalid Authorization header")
			return
		case len(rawToken) < tokenPrefixLen:
			unauthorized(w, "Invalid API token format")
			return
		case bcrypt.CompareHashAndPassword(a.hash, []byte(rawToken)) != nil:
			unauthorized(w, "Invalid API token")
			return
		}

		next.ServeHTTP(w, r.WithContext(setClientID(r.Context(), "token:"+rawToken[:tokenPrefixLen])))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="scenegen"`)
	response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, msg, nil)
}
