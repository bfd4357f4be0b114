// Package server coordinates client registration, event delivery, and
// connection cleanup for the Presidoo WebSocket transport via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"presidoo/internal/chat"
)

// Dispatcher is the slice of the chat router the hub drives: lifecycle
// notifications plus per-event dispatch.
type Dispatcher interface {
	HandleConnect(c chat.Conn)
	HandleDisconnect(c chat.Conn)
	Dispatch(c chat.Conn, event string, data json.RawMessage, ack chat.AckFunc)
}

// Hub manages all WebSocket client connections and implements
// chat.Transport: per-connection unicast, per-room multicast, and global
// broadcast. It maintains its own room sets as the delivery mechanism;
// the router's membership table mirrors them for notification content.
// All operations are safe for concurrent use.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	router     Dispatcher
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	log        *slog.Logger
}

// NewHub creates and initializes a new Hub instance. The returned Hub is
// ready to manage WebSocket connections once Run is started.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        log,
	}
}

// SetRouter attaches the event dispatcher. Must be called before Run;
// the hub and router reference each other, so one side is wired late.
func (h *Hub) SetRouter(router Dispatcher) {
	h.router = router
}

// Run starts the hub's main lifecycle loop, handling client registration
// and unregistration. This method should be called in a separate
// goroutine as it runs indefinitely.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			client.closed = false
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mutex.Unlock()
			h.log.Info("client registered", "addr", client.addr, "conn", client.id, "total", clientCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

			if h.router != nil {
				h.router.HandleConnect(client)
			}

		case client := <-h.unregister:
			// Evicted clients were already removed from the maps, but the
			// router still needs the disconnect once their pumps wind down.
			removed := h.removeClient(client)
			h.mutex.RLock()
			evicted := client.closed
			h.mutex.RUnlock()
			if h.router != nil && (removed || evicted) {
				h.router.HandleDisconnect(client)
			}
		}
	}
}

// removeClient drops the client from the client set and every transport
// room, then closes its send channel. Returns false if it was already gone.
func (h *Hub) removeClient(client *Client) bool {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return false
	}
	delete(h.clients, client)
	for _, members := range h.rooms {
		delete(members, client)
	}
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)
	h.log.Info("client unregistered", "addr", client.addr, "conn", client.id, "total", clientCount)
	return true
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Warn("recovered from panic in safeSend", "panic", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	// Check if client is still registered and not closed
	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	// Try to send the message (channel might be closed, so we need to recover from panic)
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// SendTo delivers one event to a single connection.
func (h *Hub) SendTo(c chat.Conn, event string, data any) {
	client, ok := c.(*Client)
	if !ok {
		return
	}
	payload, err := encodeEnvelope(event, "", data)
	if err != nil {
		h.log.Error("failed to encode envelope", "event", event, "err", err)
		return
	}
	if !h.safeSend(client, payload) {
		h.evictClients([]*Client{client})
	}
}

// SendToRoom delivers one event to every connection joined to room at
// the transport level. Unknown rooms are a no-op.
func (h *Hub) SendToRoom(room, event string, data any) {
	payload, err := encodeEnvelope(event, "", data)
	if err != nil {
		h.log.Error("failed to encode envelope", "event", event, "err", err)
		return
	}

	h.mutex.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		members = append(members, client)
	}
	h.mutex.RUnlock()

	h.deliver(members, nil, payload)
}

// Broadcast delivers one event to every currently connected client.
func (h *Hub) Broadcast(event string, data any) {
	h.broadcast(nil, event, data)
}

// BroadcastExcept delivers one event to every connected client except one.
func (h *Hub) BroadcastExcept(except chat.Conn, event string, data any) {
	client, _ := except.(*Client)
	h.broadcast(client, event, data)
}

func (h *Hub) broadcast(except *Client, event string, data any) {
	payload, err := encodeEnvelope(event, "", data)
	if err != nil {
		h.log.Error("failed to encode envelope", "event", event, "err", err)
		return
	}
	h.deliver(h.getClientSnapshot(), except, payload)
}

// JoinRoom adds the connection to the transport-level room set used for
// multicast delivery.
func (h *Hub) JoinRoom(c chat.Conn, room string) {
	client, ok := c.(*Client)
	if !ok {
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[client] = struct{}{}
}

// sendAck unicasts a synchronous acknowledgment envelope echoing the
// client-supplied ackId. It never touches the fan-out path.
func (h *Hub) sendAck(client *Client, ackID string, data any) {
	payload, err := encodeEnvelope(AckEvent, ackID, data)
	if err != nil {
		h.log.Error("failed to encode ack envelope", "err", err)
		return
	}
	if !h.safeSend(client, payload) {
		h.evictClients([]*Client{client})
	}
}

// deliver sends the payload to targets, skipping except, and evicts any
// client whose send buffer is full or already closed.
func (h *Hub) deliver(targets []*Client, except *Client, payload []byte) {
	var failed []*Client
	for _, client := range targets {
		if except != nil && client == except {
			continue
		}
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}
	h.evictClients(failed)
}

// getClientSnapshot returns a thread-safe snapshot of all current clients
func (h *Hub) getClientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// evictClients removes clients that failed to receive messages and closes their channels
func (h *Hub) evictClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			for _, members := range h.rooms {
				delete(members, client)
			}
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			h.log.Warn("client removed due to full send buffer", "addr", client.addr, "conn", client.id)
		}
	}
	h.mutex.Unlock()

	// Close channels after releasing the lock
	for _, ch := range channelsToClose {
		close(ch)
	}
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	// Close all client connections
	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					h.log.Warn("error closing client connection", "addr", client.addr, "err", err)
				}
			}
		}
	}

	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	// Signal shutdown
	h.cancel()

	// Wait for Run() to complete
	<-h.done

	// Wait for all client goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
