// Package server defines the wire envelope and utility helpers shared by
// the hub and client logic.
package server

import (
	"encoding/json"
	"strings"
)

// Envelope is the one JSON frame format the server speaks. Every inbound
// and outbound event is wrapped as {"event": ..., "data": ..., "ackId": ...}.
// AckID is set by a client that wants a synchronous acknowledgment; the
// server echoes it on the matching "ack" envelope.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID string          `json:"ackId,omitempty"`
}

// AckEvent is the envelope event name used for synchronous acknowledgments.
const AckEvent = "ack"

func encodeEnvelope(event, ackID string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw, AckID: ackID})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
