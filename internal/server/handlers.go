// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler returns the handler for WebSocket upgrade requests.
// It upgrades the HTTP connection, creates a Client, and registers it
// with the hub, which launches the pump goroutines.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "err", err)
			return
		}

		client := NewClient(conn, hub, r.RemoteAddr)
		hub.register <- client
	}
}

// LivenessHandler responds with a static confirmation string so load
// balancers and uptime checks can poke the root path.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Presidoo Chat Server is Running!")
}

// HealthResponse is the JSON body returned by the health endpoint.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthHandler reports server status as JSON.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(HealthResponse{Status: "UP", Timestamp: time.Now()}); err != nil {
		slog.Warn("error writing health response", "err", err)
	}
}

// TestPageHandler serves an HTML page for exercising the chat protocol
// by hand: declare a name, send global and room messages, and watch the
// raw envelopes scroll by.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		slog.Warn("error writing test page", "err", err)
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Presidoo Chat Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
            font-family: monospace;
            font-size: 12px;
        }
        input[type="text"] { padding: 5px; margin-right: 6px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
    </style>
</head>
<body>
    <h1>Presidoo Chat Test</h1>

    <div>
        <input type="text" id="nameInput" placeholder="Display name">
        <button onclick="declareName()">Join</button>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    <div style="margin-top:10px">
        <input type="text" id="messageInput" placeholder="Global message...">
        <button onclick="sendGlobal()">Send</button>
        <input type="text" id="roomInput" placeholder="Room">
        <button onclick="joinRoom()">Join room</button>
    </div>

    <div id="messages"></div>

    <script>
        let ws = null;
        let nextAck = 1;
        const messagesDiv = document.getElementById('messages');

        function addLine(text) {
            const el = document.createElement('div');
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function sendEnvelope(event, data, wantAck) {
            if (!ws || ws.readyState !== WebSocket.OPEN) { return; }
            const env = { event: event, data: data };
            if (wantAck) { env.ackId = String(nextAck++); }
            ws.send(JSON.stringify(env));
            addLine('>> ' + JSON.stringify(env));
        }

        function connect() {
            ws = new WebSocket('ws://' + location.host + '/ws');
            ws.onopen = function() { addLine('connected'); };
            ws.onmessage = function(e) { addLine('<< ' + e.data); };
            ws.onclose = function() { addLine('disconnected'); ws = null; };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) { ws.close(); } else { connect(); }
        }

        function declareName() {
            sendEnvelope('new_user', document.getElementById('nameInput').value);
        }

        function sendGlobal() {
            const input = document.getElementById('messageInput');
            sendEnvelope('send_message', {
                sender: document.getElementById('nameInput').value,
                text: input.value,
                id: String(Date.now())
            }, true);
            input.value = '';
        }

        function joinRoom() {
            sendEnvelope('join_room', document.getElementById('roomInput').value);
        }
    </script>
</body>
</html>`
