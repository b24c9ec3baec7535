package middleware

import (
	"crypto/sha256"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/Strob0t/Boardroom/internal/config"
)

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health": true,
}

// Auth returns middleware that validates the X-API-Key header against the
// configured bcrypt hashes. When auth is disabled all requests pass
// (development mode). Unauthorized requests are rejected before any stream
// is opened.
func Auth(cfg config.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" && r.URL.Path == "/ws" {
				// Browsers cannot set headers on WebSocket upgrades.
				key = r.URL.Query().Get("token")
			}
			if key == "" {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			if !keyMatches(key, cfg.KeyHashes) {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// keyMatches checks the presented key against every configured hash. Keys
// are pre-hashed with SHA-256 so arbitrarily long keys fit bcrypt's 72-byte
// input limit; `boardroom hash-key` applies the same transform.
func keyMatches(key string, hashes []string) bool {
	sum := sha256.Sum256([]byte(key))
	for _, h := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(h), sum[:]) == nil {
			return true
		}
	}
	return false
}

// HashKey produces the bcrypt hash of an API key for config storage.
func HashKey(key string) (string, error) {
	sum := sha256.Sum256([]byte(key))
	h, err := bcrypt.GenerateFromPassword(sum[:], bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
