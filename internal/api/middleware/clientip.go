package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the original client IP, checking the proxy headers
// before falling back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// first hop in the chain
		if i := strings.IndexAny(xff, ", "); i > 0 {
			return xff[:i]
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
