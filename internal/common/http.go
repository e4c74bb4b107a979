package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller address used for rate-limit buckets and request
// logs. Forwarding headers win when they hold a parseable address; anything
// else falls back to RemoteAddr without its port.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		first, _, _ := strings.Cut(r.Header.Get(header), ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
