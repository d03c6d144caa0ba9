package requests

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP is the caller's address. With trustProxy the first valid
// X-Forwarded-For entry, then X-Real-IP, win over the peer address.
// Leave trustProxy off when clients reach the server directly; they can set those headers.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xForwardedFor := r.Header.Get("X-Forwarded-For"); xForwardedFor != "" {
			first, _, _ := strings.Cut(xForwardedFor, ",")
			if ip, ok := parseIP(first); ok {
				return ip
			}
		}
		if ip, ok := parseIP(r.Header.Get("X-Real-IP")); ok {
			return ip
		}
	}
	hostIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return hostIP
}

func parseIP(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
