package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// unknownIdentifier is returned when no address can be determined at all.
const unknownIdentifier = "unknown"

// ClientIP resolves a best-effort client address for rate limiting. It
// prefers proxy-forwarded headers over the socket address and never fails:
// requests with no usable address share the "unknown" bucket.
func ClientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		// Use the first IP in the chain.
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return xff
	}

	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		if i := strings.IndexByte(rip, ','); i >= 0 {
			return strings.TrimSpace(rip[:i])
		}
		return rip
	}

	if r.RemoteAddr == "" {
		return unknownIdentifier
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
