package ratelimit

import (
	"net/http"
	"strconv"

	wildcard "github.com/IGLOU-EU/go-wildcard/v2"

	"github.com/zurich-js/zurichjs-conf-sub007/internal/confmetrics"
)

// Middleware wraps next with per-client rate limiting. Identifiers matching
// one of the exempt wildcard patterns (e.g. "10.0.*" for a trusted proxy
// range) bypass the limiter entirely.
//
// The limiter result maps onto response headers: X-RateLimit-Limit,
// X-RateLimit-Remaining, X-RateLimit-Reset (unix seconds), plus Retry-After
// on a 429 rejection.
func (l *Limiter) Middleware(exempt []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identifier := ClientIP(r)
		for _, pattern := range exempt {
			if wildcard.Match(pattern, identifier) {
				next.ServeHTTP(w, r)
				return
			}
		}

		res := l.Check(identifier)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			confmetrics.ThrottledRequestsTotal.Inc()
			retryAfter := int(res.ResetAt.Sub(l.clock()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
