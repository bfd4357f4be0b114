// Package testhelpers provides common utilities for testing the Presidoo
// chat server.
//
// It assembles fully wired test servers (stores, router, hub, HTTP
// routes), dials WebSocket connections with an allowed origin, and
// speaks the envelope protocol so integration tests stay readable.
package testhelpers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"presidoo/internal/chat"
	"presidoo/internal/server"
)

// TestOrigin is the Origin header value test connections present.
const TestOrigin = "http://localhost:8080"

// ChatServer bundles the pieces of a running test instance.
type ChatServer struct {
	HTTP    *httptest.Server
	Hub     *server.Hub
	History *chat.History
}

// WSURL returns the websocket endpoint of the test server.
func (s *ChatServer) WSURL() string {
	return "ws" + strings.TrimPrefix(s.HTTP.URL, "http") + "/ws"
}

// NewChatServer starts a fully wired chat server on an ephemeral port.
// Rate limiting is relaxed so tests can send bursts freely. Everything
// is torn down via t.Cleanup.
func NewChatServer(t *testing.T) *ChatServer {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{TestOrigin}
	cfg.RateLimit.Burst = 1000
	server.SetConfig(cfg)
	t.Cleanup(func() { server.SetConfig(nil) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := chat.NewRegistry()
	rooms := chat.NewRooms()
	history := chat.NewHistory()

	hub := server.NewHub(logger)
	router := chat.NewRouter(hub, registry, rooms, history, logger)
	hub.SetRouter(router)
	go hub.Run()
	t.Cleanup(func() {
		if err := hub.Shutdown(2 * time.Second); err != nil {
			t.Logf("hub shutdown: %v", err)
		}
	})

	httpServer := httptest.NewServer(server.SetupRoutes(hub))
	t.Cleanup(httpServer.Close)

	return &ChatServer{HTTP: httpServer, Hub: hub, History: history}
}

// ConnectWebSocket dials the websocket endpoint with the test origin.
// The connection is closed via t.Cleanup.
func ConnectWebSocket(t *testing.T, s *ChatServer) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", TestOrigin)

	conn, resp, err := dialer.Dial(s.WSURL(), headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// Envelope mirrors the server's wire frame for test assertions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID string          `json:"ackId,omitempty"`
}

// SendEnvelope writes one event frame. data is marshaled as the
// envelope's data field; ackID may be empty.
func SendEnvelope(t *testing.T, conn *websocket.Conn, event string, data any, ackID string) {
	t.Helper()

	if err := WriteEnvelope(conn, event, data, ackID); err != nil {
		t.Fatalf("Failed to send %s envelope: %v", event, err)
	}
}

// WriteEnvelope is the error-returning variant of SendEnvelope, for tests
// that expect writes to start failing mid-run.
func WriteEnvelope(conn *websocket.Conn, event string, data any, ackID string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(Envelope{Event: event, Data: raw, AckID: ackID})
}

// WaitForEvent reads frames until one with the given event name arrives,
// discarding unrelated events, and fails the test after the timeout.
func WaitForEvent(t *testing.T, conn *websocket.Conn, event string) Envelope {
	t.Helper()
	return WaitForEventMatching(t, conn, event, func(Envelope) bool { return true })
}

// WaitForEventMatching reads frames until one with the given event name
// satisfies the predicate.
func WaitForEventMatching(t *testing.T, conn *websocket.Conn, event string, match func(Envelope) bool) Envelope {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	if err := conn.SetReadDeadline(deadline); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("Timed out waiting for %q event: %v", event, err)
		}
		if env.Event == event && match(env) {
			return env
		}
	}
}

// ExpectNoEvent asserts that no frame with the given event name arrives
// within the timeout. Unrelated events are tolerated.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, event string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	for {
		var env Envelope
		err := conn.ReadJSON(&env)
		if err != nil {
			return // timed out without seeing the event
		}
		if env.Event == event {
			t.Fatalf("Expected no %q event, but received one: %s", event, env.Data)
		}
	}
}

// DecodeData unmarshals an envelope's data field into out.
func DecodeData(t *testing.T, env Envelope, out any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("Failed to decode %s data: %v", env.Event, err)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// AssertStatusCode checks if the HTTP response has the expected status code.
// It fails the test with a descriptive error message if the status codes don't match.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
// It fails the test with a descriptive error message if the content types don't match.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}
