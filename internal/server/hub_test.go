package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"presidoo/internal/chat"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// addTestClient registers a connection-less client straight into the hub
// maps so delivery can be observed on its send channel without running
// the pump goroutines.
func addTestClient(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := NewClient(nil, h, "test")
	h.mutex.Lock()
	h.clients[c] = true
	h.mutex.Unlock()
	return c
}

func receiveEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case payload := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(payload, &env))
		return env
	default:
		t.Fatal("expected an envelope on the send channel")
		return Envelope{}
	}
}

func requireNoEnvelope(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.send:
		t.Fatalf("expected no envelope, got %s", payload)
	default:
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	a := addTestClient(t, h)
	b := addTestClient(t, h)

	h.Broadcast(chat.EventOnlineUsers, []string{"alice"})

	for _, c := range []*Client{a, b} {
		env := receiveEnvelope(t, c)
		req.Equal(chat.EventOnlineUsers, env.Event)
		req.JSONEq(`["alice"]`, string(env.Data))
	}
}

func TestHubBroadcastExceptSkipsSender(t *testing.T) {
	h := NewHub(testLogger())
	a := addTestClient(t, h)
	b := addTestClient(t, h)

	h.BroadcastExcept(a, chat.EventTyping, true)

	requireNoEnvelope(t, a)
	env := receiveEnvelope(t, b)
	require.Equal(t, chat.EventTyping, env.Event)
}

func TestHubSendToTargetsSingleClient(t *testing.T) {
	h := NewHub(testLogger())
	a := addTestClient(t, h)
	b := addTestClient(t, h)

	h.SendTo(a, chat.EventMessagesBatch, []string{})

	receiveEnvelope(t, a)
	requireNoEnvelope(t, b)
}

func TestHubSendToRoomOnlyReachesMembers(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	a := addTestClient(t, h)
	b := addTestClient(t, h)
	c := addTestClient(t, h)

	h.JoinRoom(a, "lobby")
	h.JoinRoom(b, "lobby")
	// Joining twice must not duplicate delivery.
	h.JoinRoom(a, "lobby")

	h.SendToRoom("lobby", chat.EventRoomNotification, "alice joined lobby")

	for _, member := range []*Client{a, b} {
		env := receiveEnvelope(t, member)
		req.Equal(chat.EventRoomNotification, env.Event)
		requireNoEnvelope(t, member)
	}
	requireNoEnvelope(t, c)
}

func TestHubSendToRoomUnknownRoomIsNoOp(t *testing.T) {
	h := NewHub(testLogger())
	a := addTestClient(t, h)

	h.SendToRoom("nowhere", chat.EventRoomNotification, "x")

	requireNoEnvelope(t, a)
}

func TestHubSendAckEchoesAckID(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	a := addTestClient(t, h)

	h.sendAck(a, "42", chat.Ack{Status: chat.AckStatusDelivered, ID: "m1"})

	env := receiveEnvelope(t, a)
	req.Equal(AckEvent, env.Event)
	req.Equal("42", env.AckID)
	req.JSONEq(`{"status":"delivered","id":"m1"}`, string(env.Data))
}

func TestHubEvictsClientWithFullSendBuffer(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	a := addTestClient(t, h)
	h.JoinRoom(a, "lobby")

	for i := 0; i < cap(a.send); i++ {
		a.send <- []byte("x")
	}

	h.Broadcast(chat.EventTyping, true)

	h.mutex.RLock()
	_, stillThere := h.clients[a]
	_, stillInRoom := h.rooms["lobby"][a]
	h.mutex.RUnlock()
	req.False(stillThere, "client with full buffer should be evicted")
	req.False(stillInRoom, "evicted client should leave transport rooms")
	req.True(a.closed)
}

func TestHubRemoveClientClearsRooms(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	a := addTestClient(t, h)
	h.JoinRoom(a, "lobby")
	h.JoinRoom(a, "dev")

	req.True(h.removeClient(a))

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	req.Empty(h.rooms["lobby"])
	req.Empty(h.rooms["dev"])
	req.NotContains(h.clients, a)
}

type stubDispatcher struct {
	conns  []chat.Conn
	events []string
	data   []json.RawMessage
	acks   []chat.AckFunc
}

func (s *stubDispatcher) HandleConnect(chat.Conn)    {}
func (s *stubDispatcher) HandleDisconnect(chat.Conn) {}

func (s *stubDispatcher) Dispatch(c chat.Conn, event string, data json.RawMessage, ack chat.AckFunc) {
	s.conns = append(s.conns, c)
	s.events = append(s.events, event)
	s.data = append(s.data, data)
	s.acks = append(s.acks, ack)
}

func TestClientProcessMessageDispatchesEnvelope(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	dispatcher := &stubDispatcher{}
	h.SetRouter(dispatcher)
	a := addTestClient(t, h)

	req.True(a.processMessage([]byte(`{"event":"new_user","data":"alice"}`)))

	req.Equal([]string{chat.EventNewUser}, dispatcher.events)
	req.JSONEq(`"alice"`, string(dispatcher.data[0]))
	req.Nil(dispatcher.acks[0], "no ackId means no ack callback")
	req.Equal(a, dispatcher.conns[0])
}

func TestClientProcessMessageAckCallback(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	dispatcher := &stubDispatcher{}
	h.SetRouter(dispatcher)
	a := addTestClient(t, h)

	req.True(a.processMessage([]byte(`{"event":"send_message","data":{"text":"hi"},"ackId":"7"}`)))
	req.NotNil(dispatcher.acks[0])

	dispatcher.acks[0](chat.Ack{Status: chat.AckStatusDelivered})

	env := receiveEnvelope(t, a)
	req.Equal(AckEvent, env.Event)
	req.Equal("7", env.AckID)
}

func TestClientProcessMessageRejectsMalformedFrames(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	dispatcher := &stubDispatcher{}
	h.SetRouter(dispatcher)
	a := addTestClient(t, h)

	req.False(a.processMessage([]byte(`not json`)))
	req.False(a.processMessage([]byte(`{"data":"no event"}`)))
	req.Empty(dispatcher.events)
}

func TestClientIDIsStablePerConnection(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	a := NewClient(nil, h, "test")
	b := NewClient(nil, h, "test")

	req.NotEmpty(a.ID())
	req.Equal(a.ID(), a.ID())
	req.NotEqual(a.ID(), b.ID())
}
