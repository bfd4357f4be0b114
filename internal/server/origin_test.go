package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func requestWithOrigin(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestNormalizeOrigin(t *testing.T) {
	req := require.New(t)

	normalized, ok := normalizeOrigin("HTTP://LocalHost:8080/some/path")
	req.True(ok)
	req.Equal("http://localhost:8080", normalized)

	_, ok = normalizeOrigin("not a url")
	req.False(ok)

	_, ok = normalizeOrigin("/relative")
	req.False(ok)
}

func TestCheckOriginAgainstAllowList(t *testing.T) {
	req := require.New(t)
	t.Cleanup(func() { SetConfig(nil) })

	SetConfig(&Config{AllowedOrigins: []string{"http://chat.example.com"}})

	req.True(checkOrigin(requestWithOrigin("http://chat.example.com")))
	req.True(checkOrigin(requestWithOrigin("http://CHAT.example.com")), "matching is case-insensitive")
	req.False(checkOrigin(requestWithOrigin("http://evil.example.com")))
	req.False(checkOrigin(requestWithOrigin("")), "missing origin header is rejected")
}

func TestCheckOriginWildcardAllowsEverything(t *testing.T) {
	req := require.New(t)
	t.Cleanup(func() { SetConfig(nil) })

	SetConfig(&Config{AllowedOrigins: []string{"*"}})

	req.True(checkOrigin(requestWithOrigin("http://anything.example.com")))
	req.False(checkOrigin(requestWithOrigin("")), "wildcard still requires an origin header")
}
