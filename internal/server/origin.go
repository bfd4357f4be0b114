// Package server normalizes and validates HTTP origins for WebSocket requests
// to enforce configured access control.
package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// normalizeOrigins canonicalizes the configured allow-list, dropping
// entries that do not parse. A lone "*" switches on allow-all mode and
// is reported separately rather than kept in the list.
func normalizeOrigins(origins []string) ([]string, bool) {
	allowAll := lo.SomeBy(origins, func(o string) bool { return strings.TrimSpace(o) == "*" })

	normalized := lo.FilterMap(origins, func(origin string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" || trimmed == "*" {
			return "", false
		}
		canonical, ok := normalizeOrigin(trimmed)
		if !ok {
			slog.Warn("ignoring invalid origin in configuration", "origin", origin)
		}
		return canonical, ok
	})

	if len(normalized) == 0 {
		normalized = nil
	}
	return normalized, allowAll
}

// normalizeOrigin reduces an origin to lowercase scheme://host so that
// comparisons ignore case and any trailing path.
func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func isOriginAllowed(r *http.Request) bool {
	canonical, ok := normalizeOrigin(r.Header.Get("Origin"))
	if !ok {
		return false
	}

	configMu.RLock()
	defer configMu.RUnlock()

	if allowAllOrigins {
		return true
	}
	_, exists := allowedOrigins[canonical]
	return exists
}

func checkOrigin(r *http.Request) bool {
	if isOriginAllowed(r) {
		return true
	}
	slog.Warn("blocked websocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
	return false
}
