package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// WebSocketURL maps an http(s) backend root onto the ws(s) URL of path.
func WebSocketURL(serverURL, path string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(strings.TrimSpace(serverURL), "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", serverURL)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
