package server

import "context"

// State is the lifecycle position of a Session.
type State int

// Session states. A session starts CONNECTED, becomes NAMED on its first
// announce and ends CLOSED.
const (
	StateConnected State = iota
	StateNamed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateNamed:
		return "named"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Outbound delivers encoded frames to one connection. Send must not block;
// Close tears the connection down and may be called more than once.
type Outbound interface {
	Send(frame []byte) error
	Close() error
}

// Session is the hub-side state of one live connection. Its event methods
// must be called from a single goroutine per connection so that the
// connection's events are handled in arrival order.
type Session struct {
	id  string
	hub *Hub
	out Outbound

	// guarded by hub.mu
	name    string
	state   State
	dropped bool
}

// ID returns the connection identifier.
func (s *Session) ID() string { return s.id }

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.state
}

// Name returns the announced display name, if any.
func (s *Session) Name() (string, bool) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.name, s.state == StateNamed
}

// Announce sets (or changes) the session's display name.
func (s *Session) Announce(name string) { s.hub.announce(s, name) }

// Message broadcasts a chat message from this session.
func (s *Session) Message(p MessagePayload) { s.hub.message(s, p) }

// Refresh re-sends the full history to this session only.
func (s *Session) Refresh(ctx context.Context) { s.hub.sendHistory(ctx, s) }

// Close disconnects the session. Closing twice is a no-op.
func (s *Session) Close() { s.hub.disconnect(s) }
