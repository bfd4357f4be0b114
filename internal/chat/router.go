package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// anonymousName stands in for connections that never declared an identity.
const anonymousName = "Unknown"

// Transport is the connection multiplexer the router delivers through.
// The hub in internal/server implements it; tests substitute a fake.
// All sends are fire-and-forget: no method blocks on network delivery.
type Transport interface {
	SendTo(c Conn, event string, data any)
	SendToRoom(room, event string, data any)
	Broadcast(event string, data any)
	BroadcastExcept(except Conn, event string, data any)
	JoinRoom(c Conn, room string)
}

// AckFunc delivers a synchronous acknowledgment to the connection that
// sent the inbound event. It is scoped to that single event and is
// independent of any fan-out the handler performs.
type AckFunc func(data any)

// Router is the event-handling state machine at the center of the
// server. It owns no connection resources; it mutates the injected
// stores and computes the delivery target set for each outbound event.
//
// A single mutex serializes dispatch, so every state mutation behaves as
// if processed one event at a time in arrival order. Handlers never
// return errors to remote peers: malformed or unresolvable input
// degrades to a no-op with a local diagnostic.
type Router struct {
	mu        sync.Mutex
	transport Transport
	registry  *Registry
	rooms     *Rooms
	history   *History
	validate  *validator.Validate
	log       *slog.Logger
	now       func() time.Time
}

// NewRouter wires the router to its transport and stores.
func NewRouter(transport Transport, registry *Registry, rooms *Rooms, history *History, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		transport: transport,
		registry:  registry,
		rooms:     rooms,
		history:   history,
		validate:  validator.New(),
		log:       log,
		now:       time.Now,
	}
}

// HandleConnect records a new transport connection. The connection stays
// anonymous until it declares an identity via new_user.
func (r *Router) HandleConnect(c Conn) {
	r.log.Info("client connected", "conn", c.ID())
}

// HandleDisconnect tears down all state for c: its identity mapping, its
// room memberships, and announces the updated online set plus a
// departure notice to everyone still connected.
func (r *Router) HandleDisconnect(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, named := r.registry.Remove(c)
	r.rooms.LeaveAll(c)

	display := name
	if !named {
		display = anonymousName
	}

	r.transport.Broadcast(EventOnlineUsers, r.registry.Snapshot())
	r.transport.Broadcast(EventRoomNotification, fmt.Sprintf("%s left the chat", display))
	r.log.Info("client disconnected", "conn", c.ID(), "user", display)
}

// Dispatch routes one inbound event to its handler. Unknown events and
// undecodable payloads are dropped with a diagnostic; nothing here can
// take the connection down.
func (r *Router) Dispatch(c Conn, event string, data json.RawMessage, ack AckFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event {
	case EventNewUser:
		r.handleNewUser(c, data)
	case EventSendMessage:
		r.handleSendMessage(c, data, ack)
	case EventTyping:
		r.handleTyping(c, data)
	case EventPrivateMessage:
		r.handlePrivateMessage(c, data)
	case EventJoinRoom:
		r.handleJoinRoom(c, data)
	case EventRoomMessage:
		r.handleRoomMessage(c, data)
	case EventSendFile:
		r.handleSendFile(c, data)
	case EventMessageRead:
		r.handleMessageRead(c, data)
	case EventAddReaction:
		r.handleAddReaction(c, data)
	case EventGetMessages:
		r.handleGetMessages(c, data)
	default:
		r.log.Debug("dropping unknown event", "event", event, "conn", c.ID())
	}
}

func (r *Router) handleNewUser(c Conn, data json.RawMessage) {
	var name string
	if err := json.Unmarshal(data, &name); err != nil || name == "" {
		r.log.Debug("dropping malformed new_user payload", "conn", c.ID(), "err", err)
		return
	}

	r.registry.Register(c, name)
	r.transport.Broadcast(EventOnlineUsers, r.registry.Snapshot())
	r.log.Info("user joined", "user", name, "conn", c.ID())
}

func (r *Router) handleSendMessage(c Conn, data json.RawMessage, ack AckFunc) {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.log.Debug("dropping malformed send_message payload", "conn", c.ID(), "err", err)
		return
	}

	// Recipients get the client payload verbatim so extra fields survive.
	r.transport.Broadcast(EventReceiveMessage, data)
	r.history.Append(Message{
		ID:        p.ID,
		Room:      GlobalRoom,
		Sender:    p.Sender,
		Text:      p.Text,
		Timestamp: p.Timestamp,
	})
	r.log.Info("global message", "sender", p.Sender)

	if ack != nil {
		ack(Ack{Status: AckStatusDelivered, ID: p.ID})
	}
}

func (r *Router) handleTyping(c Conn, data json.RawMessage) {
	var isTyping bool
	if err := json.Unmarshal(data, &isTyping); err != nil {
		r.log.Debug("dropping malformed typing payload", "conn", c.ID(), "err", err)
		return
	}
	r.transport.BroadcastExcept(c, EventTyping, isTyping)
}

func (r *Router) handlePrivateMessage(c Conn, data json.RawMessage) {
	var p PrivateMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.log.Debug("dropping malformed private_message payload", "conn", c.ID(), "err", err)
		return
	}
	if err := r.validate.Struct(p); err != nil {
		r.log.Debug("dropping invalid private_message payload", "conn", c.ID(), "err", err)
		return
	}

	target, ok := r.registry.LookupByName(p.To)
	if !ok {
		// Unresolvable recipient: silent drop, never an error to anyone.
		r.log.Debug("private message to unknown user", "to", p.To)
		return
	}

	from, _ := r.registry.NameOf(c)
	r.transport.SendTo(target, EventReceivePrivateMessage, PrivateMessageEvent{
		From:      from,
		Message:   p.Message,
		Timestamp: clockStamp(r.now()),
	})
	r.log.Info("private message", "from", from, "to", p.To)
}

func (r *Router) handleJoinRoom(c Conn, data json.RawMessage) {
	var room string
	if err := json.Unmarshal(data, &room); err != nil || room == "" {
		r.log.Debug("dropping malformed join_room payload", "conn", c.ID(), "err", err)
		return
	}

	r.rooms.Join(room, c)
	r.transport.JoinRoom(c, room)

	name, named := r.registry.NameOf(c)
	if !named {
		name = anonymousName
	}
	r.transport.SendToRoom(room, EventRoomNotification, fmt.Sprintf("%s joined %s", name, room))
	r.log.Info("room joined", "user", name, "room", room)
}

func (r *Router) handleRoomMessage(c Conn, data json.RawMessage) {
	var p RoomMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.log.Debug("dropping malformed room_message payload", "conn", c.ID(), "err", err)
		return
	}
	if err := r.validate.Struct(p); err != nil {
		r.log.Debug("dropping invalid room_message payload", "conn", c.ID(), "err", err)
		return
	}

	msg := Message{
		ID:        uuid.NewString(),
		Room:      p.Room,
		Sender:    p.Sender,
		Text:      p.Message,
		Timestamp: clockStamp(r.now()),
	}
	r.history.Append(msg)
	r.transport.SendToRoom(p.Room, EventReceiveRoomMessage, RoomMessageEvent{
		ID:        msg.ID,
		Room:      msg.Room,
		Sender:    msg.Sender,
		Message:   msg.Text,
		Timestamp: msg.Timestamp,
	})
	r.log.Info("room message", "room", p.Room, "sender", p.Sender)
}

func (r *Router) handleSendFile(c Conn, data json.RawMessage) {
	var p FileSharePayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.log.Debug("dropping malformed send_file payload", "conn", c.ID(), "err", err)
		return
	}
	r.transport.Broadcast(EventReceiveFile, data)
	r.log.Info("file shared", "file", p.FileName, "sender", p.Sender)
}

func (r *Router) handleMessageRead(c Conn, data json.RawMessage) {
	if !json.Valid(data) {
		r.log.Debug("dropping malformed message_read payload", "conn", c.ID())
		return
	}
	r.transport.Broadcast(EventMessageReadAck, data)
}

func (r *Router) handleAddReaction(c Conn, data json.RawMessage) {
	var p AddReactionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.log.Debug("dropping malformed add_reaction payload", "conn", c.ID(), "err", err)
		return
	}
	if err := r.validate.Struct(p); err != nil {
		r.log.Debug("dropping invalid add_reaction payload", "conn", c.ID(), "err", err)
		return
	}
	r.transport.Broadcast(EventReactionUpdate, ReactionEvent{ID: p.ID, Reaction: p.Reaction})
	r.log.Info("reaction added", "reaction", p.Reaction)
}

func (r *Router) handleGetMessages(c Conn, data json.RawMessage) {
	var p GetMessagesPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.log.Debug("dropping malformed get_messages payload", "conn", c.ID(), "err", err)
		return
	}
	r.transport.SendTo(c, EventMessagesBatch, r.history.Query(p.Room, p.Offset, p.Limit))
}
