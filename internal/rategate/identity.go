package rategate

import (
	"net"
	"net/http"
	"strings"
)

// UserIDHeader carries the caller-supplied identity. Requests without it are
// bucketed by network origin, so anonymous callers behind one origin share a
// window.
const UserIDHeader = "X-User-ID"

// RequesterKey resolves a stable key for the request: the explicit user id
// when present, otherwise the client IP.
func RequesterKey(r *http.Request) string {
	if userID := strings.TrimSpace(r.Header.Get(UserIDHeader)); userID != "" {
		return userID
	}
	return clientIP(r)
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For first (trusted reverse proxy); take the first IP.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
