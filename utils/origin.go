package utils

import (
	"net/url"
	"strings"
)

// OriginAllowed reports whether a browser Origin may use the cookie session.
// Requests without an Origin header come from non-browser clients and pass.
// Otherwise the origin must match host or be listed in allowed ("*" allows all).
func OriginAllowed(origin, host string, allowed []string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, host) {
		return true
	}
	for _, a := range allowed {
		a = strings.TrimRight(strings.TrimSpace(a), "/")
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
