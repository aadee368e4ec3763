package utils

import (
	"net/url"
	"strings"
)

// IsLocalhost reports whether serverURL points at this machine.
func IsLocalhost(serverURL string) bool {
	u, err := url.Parse(serverURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
