package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyHeader carries the API key on mutating requests.
const APIKeyHeader = "X-API-KEY"

// AuthConfig holds the accepted API keys. No keys disables authentication.
type AuthConfig struct {
	keys []string
}

// NewAuthConfigWithKeys creates an AuthConfig. Blank keys are ignored.
func NewAuthConfigWithKeys(keys []string) AuthConfig {
	var accepted []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			accepted = append(accepted, k)
		}
	}
	return AuthConfig{keys: accepted}
}

// Enabled reports whether any key is configured.
func (c AuthConfig) Enabled() bool {
	return len(c.keys) > 0
}

// Valid reports whether key is one of the accepted keys.
func (c AuthConfig) Valid(key string) bool {
	for _, k := range c.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// WriteProtect requires a valid API key on POST, PUT, PATCH and DELETE.
// The key is read from X-API-KEY or an "Authorization: Bearer" header.
func WriteProtect(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled() || !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				key = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			switch {
			case key == "":
				WriteError(w, r, NewAuthenticationError("missing API key"), nil)
			case !config.Valid(key):
				WriteError(w, r, NewAuthenticationError("invalid API key"), nil)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// WriteProtectAuth is WriteProtect built from a list of keys.
func WriteProtectAuth(keys []string) func(http.Handler) http.Handler {
	return WriteProtect(NewAuthConfigWithKeys(keys))
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
