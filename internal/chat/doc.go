// Package chat implements the routing core of the Presidoo chat server:
// the identity registry, room membership table, message history, and the
// event router that fans inbound events out to the right recipients.
//
// The package is transport-agnostic. Connections appear only as opaque
// Conn handles and delivery goes through the Transport interface, so the
// core can be exercised in tests without a single WebSocket in sight.
package chat
