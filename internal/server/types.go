// Package server defines the JSON envelope exchanged with relay clients and
// utility helpers that are reused across client and hub logic.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Inbound event types.
const (
	EventAnnounce = "announce"
	EventMessage  = "message"
	EventRefresh  = "refresh"
)

// Outbound event types.
const (
	EventHistory = "history"
	EventChat    = "chatEvent"
	EventRoster  = "roster"
)

var (
	// ErrSendBufferFull is returned when a connection cannot keep up with
	// the broadcast rate.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrSessionClosed is returned when sending to a connection that has
	// already been torn down.
	ErrSessionClosed = errors.New("session closed")
	// ErrHubClosed is returned by Connect once the hub is shutting down.
	ErrHubClosed = errors.New("hub closed")
	// ErrDuplicateSession is returned when a connection identifier is
	// already live.
	ErrDuplicateSession = errors.New("duplicate session id")
)

// Envelope is the frame format in both directions: {"type": ..., "data": ...}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MessagePayload is the data of an inbound message event. Timestamp is
// optional and accepted only in RFC 3339 form; anything else is replaced by
// the server's clock.
type MessagePayload struct {
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
	Timestamp   string `json:"timestamp,omitempty"`
}

func (p MessagePayload) time(fallback time.Time) time.Time {
	if p.Timestamp == "" {
		return fallback
	}
	ts, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		return fallback
	}
	return ts
}

// encodeEvent builds an outbound frame.
func encodeEvent(eventType string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", eventType, err)
	}
	frame, err := json.Marshal(Envelope{Type: eventType, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", eventType, err)
	}
	return frame, nil
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
