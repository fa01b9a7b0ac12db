package utils

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP prefers the first hop in X-Forwarded-For, falling back to the
// connection's remote address.
func RealClientIP(r *http.Request) string {
	if xfwd := r.Header.Get("X-Forwarded-For"); xfwd != "" {
		if i := strings.IndexByte(xfwd, ','); i >= 0 {
			return strings.TrimSpace(xfwd[:i])
		}
		return strings.TrimSpace(xfwd)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
