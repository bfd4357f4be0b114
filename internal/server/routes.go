// Package server wires HTTP handlers into a router for the Presidoo
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures and returns the HTTP router with all
// application routes: liveness check, JSON health, the WebSocket
// endpoint, and the built-in test page.
func SetupRoutes(hub *Hub) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", LivenessHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", WebSocketHandler(hub)).Methods(http.MethodGet)
	r.HandleFunc("/test", TestPageHandler).Methods(http.MethodGet)
	return r
}
