// Package server wires HTTP handlers into a ServeMux for the relay via
// routing helpers.
package server

import "net/http"

// Routes returns a ServeMux with all relay routes: health check, WebSocket
// endpoint, hub statistics and the test page.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("/stats", s.StatsHandler)
	mux.HandleFunc("/test", s.TestPageHandler)
	return mux
}
