// Package server ties configuration, the hub and the WebSocket upgrader
// together behind a single Server value.
package server

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gochat-relay/internal/eventlog"
)

// Server serves the relay over HTTP.
type Server struct {
	cfg      Config
	hub      *Hub
	origins  *originPolicy
	upgrader websocket.Upgrader
	logger   *slog.Logger
	newID    func() string
}

// NewServer builds a Server from cfg. Events are persisted and replayed
// through events; a nil logger uses slog.Default.
func NewServer(cfg Config, events *eventlog.Client, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.Sanitize()

	s := &Server{
		cfg:     cfg,
		hub:     NewHub(events, WithLogger(logger)),
		origins: newOriginPolicy(cfg.AllowedOrigins, logger.With("component", "origin")),
		logger:  logger.With("component", "http"),
		newID:   func() string { return uuid.New().String() },
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s
}

// Hub returns the server's hub for shutdown coordination.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Config returns the sanitized configuration in use.
func (s *Server) Config() Config {
	cfg := s.cfg
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}
