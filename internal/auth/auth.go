package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HeaderAdminToken carries the shared admin secret on mutating requests.
const HeaderAdminToken = "X-Admin-Token"

// AdminGuard protects routes with a bcrypt-hashed shared token. A guard without a hash lets
// every request through.
type AdminGuard struct {
	hash []byte
}

// NewAdminGuard builds a guard from a bcrypt hash; an empty hash disables the check.
func NewAdminGuard(hash string) *AdminGuard {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return &AdminGuard{}
	}
	return &AdminGuard{hash: []byte(hash)}
}

// HashToken returns the bcrypt hash to configure for token.
func HashToken(token string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Enabled reports whether requests must present a token.
func (g *AdminGuard) Enabled() bool {
	return g != nil && len(g.hash) > 0
}

// Require rejects requests without a matching admin token with 401.
func (g *AdminGuard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		token := r.Header.Get(HeaderAdminToken)
		if token == "" || bcrypt.CompareHashAndPassword(g.hash, []byte(token)) != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":  "error",
				"message": "admin token required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
