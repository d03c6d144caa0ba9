package requests

import (
	"net/http"
	"strings"
)

// BaseURL is scheme://host of the request as the client addressed it.
// X-Forwarded-Proto and X-Forwarded-Host from a proxy take precedence.
func BaseURL(req *http.Request) string {
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if proto := req.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	host := req.Host
	if fwdHost := req.Header.Get("X-Forwarded-Host"); fwdHost != "" {
		host = strings.TrimSpace(strings.Split(fwdHost, ",")[0])
	}
	return scheme + "://" + host
}
