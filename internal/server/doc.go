// Package server implements the WebSocket transport and HTTP surface of the
// Presidoo chat server.
//
// The implementation is organized into specialized files for configuration, hub
// management, clients, routing, and HTTP handlers. The hub implements the
// chat.Transport delivery primitives; all protocol semantics live in
// internal/chat.
package server
