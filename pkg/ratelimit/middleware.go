package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
)

// IdentifierFunc extracts the rate limit identifier from a request.
type IdentifierFunc func(r *http.Request) string

// DefaultIdentifierFunc keys on the session header when present, falling back
// to the client IP.
func DefaultIdentifierFunc(r *http.Request) string {
	if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" {
		return sessionID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// MiddlewareConfig configures the limiter middleware.
type MiddlewareConfig struct {
	Limiter        *Limiter
	IdentifierFunc IdentifierFunc
	ExcludedPaths  []string
}

// Middleware enforces the limit, emitting standard X-RateLimit headers and a
// 429 JSON body when exceeded. A nil limiter passes everything through.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.IdentifierFunc == nil {
		cfg.IdentifierFunc = DefaultIdentifierFunc
	}

	excluded := make(map[string]bool, len(cfg.ExcludedPaths))
	for _, path := range cfg.ExcludedPaths {
		excluded[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if excluded[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := cfg.Limiter.Check(cfg.IdentifierFunc(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := int64(result.RetryAfter().Seconds()) + 1
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"detail":              "rate limit exceeded",
					"retry_after_seconds": retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
