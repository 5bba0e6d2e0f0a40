package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/digitallysavvy/claude-code-gateway/internal/gwerrors"
)

// rateLimiter is the subset of *ratelimit.Limiter the router depends on,
// kept narrow so tests can substitute a fake.
type rateLimiter interface {
	Allow(key string) error
}

// authMiddleware enforces bearer-token authentication (§6.5 API_KEY /
// API_KEYS, §4.12 of the expanded specification). Disabled entirely when
// no keys are configured.
func authMiddleware(keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" || !matchesAnyKey(token, keys) {
				renderError(w, gwerrors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// matchesAnyKey compares token against every configured key in constant
// time per comparison, so response timing does not leak which key (if
// any) came close to matching.
func matchesAnyKey(token string, keys []string) bool {
	matched := false
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(token), []byte(k)) == 1 {
			matched = true
		}
	}
	return matched
}

// rateLimitMiddleware enforces the per-key token bucket (§2.1.1) before a
// request reaches WorkspaceResolver or the child process. The key is the
// bearer token when auth is enabled, otherwise the caller's remote address.
func rateLimitMiddleware(limiter rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := bearerToken(r.Header.Get("Authorization"))
			if key == "" {
				key = r.RemoteAddr
			}
			if err := limiter.Allow(key); err != nil {
				renderError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
