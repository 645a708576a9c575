// Package server coordinates session registration, event broadcast, and
// connection cleanup for the relay via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/gochat-relay/internal/eventlog"
	"github.com/Tyrowin/gochat-relay/internal/roster"
)

// AnonymousName stands in for a user who disconnects without announcing.
const AnonymousName = "Anonymous"

// Hub owns the set of live sessions and the roster. A single mutex covers
// the session set, roster mutation, snapshot and broadcast enqueue, so every
// roster broadcast reflects exactly the mutation that triggered it. Store I/O
// always happens outside the lock.
type Hub struct {
	roster *roster.Roster
	events *eventlog.Client
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Option customises a Hub.
type Option func(*Hub)

// WithLogger sets the hub's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) { h.logger = logger }
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// NewHub creates a hub that persists through events.
func NewHub(events *eventlog.Client, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		roster:   roster.New(),
		events:   events,
		logger:   slog.Default(),
		now:      time.Now,
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "hub")
	return h
}

// Connect registers a new session for the connection id and delivers the
// stored history to it alone. History is fetched after registration, so live
// events may reach the client ahead of the replay.
func (h *Hub) Connect(ctx context.Context, id string, out Outbound) (*Session, error) {
	s := &Session{id: id, hub: h, out: out, state: StateConnected}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if _, exists := h.sessions[id]; exists {
		h.mu.Unlock()
		return nil, ErrDuplicateSession
	}
	h.sessions[id] = s
	count := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info("session connected", "session", id, "sessions", count)
	h.sendHistory(ctx, s)
	return s, nil
}

// Stats reports the number of live sessions and how many have a name.
func (h *Hub) Stats() (sessions, named int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions), h.roster.Len()
}

// Roster returns the current roster snapshot.
func (h *Hub) Roster() []string {
	return h.roster.Snapshot()
}

func (h *Hub) sendHistory(ctx context.Context, s *Session) {
	records := h.events.ListAll(ctx)
	frame, err := encodeEvent(EventHistory, records)
	if err != nil {
		h.logger.Error("failed to encode history", "session", s.id, "error", err)
		return
	}

	h.mu.Lock()
	var failed []*Session
	if !h.safeSend(s, frame) {
		failed = append(failed, s)
	}
	h.mu.Unlock()

	h.dropFailed(failed)
}

func (h *Hub) announce(s *Session, name string) {
	rec := eventlog.Record{
		Kind:        eventlog.KindJoin,
		DisplayName: eventlog.SystemName,
		Text:        name + " has joined the chat",
		Timestamp:   h.now(),
	}

	h.mu.Lock()
	if s.state == StateClosed {
		h.mu.Unlock()
		return
	}
	h.roster.SetName(s.id, name)
	s.name = name
	s.state = StateNamed
	failed := h.broadcastLocked(EventChat, rec)
	failed = append(failed, h.broadcastRosterLocked()...)
	h.mu.Unlock()

	h.logger.Info("session announced", "session", s.id, "name", name)
	h.dropFailed(failed)
	h.events.Append(rec)
}

// message broadcasts a user message. A session that never announced is not
// rejected; its record carries whatever display name the client supplied.
func (h *Hub) message(s *Session, p MessagePayload) {
	h.mu.Lock()
	if s.state == StateClosed {
		h.mu.Unlock()
		return
	}
	name := p.DisplayName
	if s.state == StateNamed {
		name = s.name
	}
	rec := eventlog.Record{
		Kind:        eventlog.KindMessage,
		DisplayName: name,
		Text:        p.Text,
		Timestamp:   p.time(h.now()),
	}
	failed := h.broadcastLocked(EventChat, rec)
	h.mu.Unlock()

	h.dropFailed(failed)
	h.events.Append(rec)
}

func (h *Hub) disconnect(s *Session) {
	h.dropFailed(h.removeSession(s))
}

// removeSession takes s out of the hub, announces its departure to the
// remaining sessions and returns any session whose send failed on the way.
func (h *Hub) removeSession(s *Session) []*Session {
	h.mu.Lock()
	if current, ok := h.sessions[s.id]; !ok || current != s {
		h.mu.Unlock()
		return nil
	}
	delete(h.sessions, s.id)
	s.state = StateClosed

	name, named := h.roster.Remove(s.id)
	if !named {
		name = AnonymousName
	}
	rec := eventlog.Record{
		Kind:        eventlog.KindLeave,
		DisplayName: eventlog.SystemName,
		Text:        name + " has left the chat",
		Timestamp:   h.now(),
	}
	failed := h.broadcastLocked(EventChat, rec)
	failed = append(failed, h.broadcastRosterLocked()...)
	count := len(h.sessions)
	h.mu.Unlock()

	if err := s.out.Close(); err != nil && !isExpectedCloseError(err) {
		h.logger.Warn("error closing session transport", "session", s.id, "error", err)
	}
	h.logger.Info("session disconnected", "session", s.id, "name", name, "sessions", count)
	h.events.Append(rec)
	return failed
}

// dropFailed disconnects sessions whose transport rejected a frame, exactly
// as if they had closed. Their leave broadcasts may fail further sessions,
// which are handled in the same loop.
func (h *Hub) dropFailed(failed []*Session) {
	for len(failed) > 0 {
		s := failed[0]
		failed = failed[1:]
		h.logger.Warn("dropping session after failed send", "session", s.id)
		failed = append(failed, h.removeSession(s)...)
	}
}

// safeSend enqueues frame for s. Callers hold h.mu. A failed send marks the
// session dropped so later broadcasts skip it until it is removed.
func (h *Hub) safeSend(s *Session, frame []byte) bool {
	if s.state == StateClosed || s.dropped {
		return true
	}
	if err := s.out.Send(frame); err != nil {
		s.dropped = true
		h.logger.Debug("send failed", "session", s.id, "error", err)
		return false
	}
	return true
}

// broadcastLocked encodes data once and enqueues it to every live session.
// Callers hold h.mu.
func (h *Hub) broadcastLocked(eventType string, data any) []*Session {
	frame, err := encodeEvent(eventType, data)
	if err != nil {
		h.logger.Error("failed to encode broadcast", "type", eventType, "error", err)
		return nil
	}

	var failed []*Session
	for _, s := range h.sessions {
		if !h.safeSend(s, frame) {
			failed = append(failed, s)
		}
	}
	return failed
}

// broadcastRosterLocked sends the roster as it stands under the caller's lock.
func (h *Hub) broadcastRosterLocked() []*Session {
	return h.broadcastLocked(EventRoster, h.roster.Snapshot())
}

// start runs c's pumps under the hub's wait group. Once Shutdown has begun
// it returns ErrHubClosed and starts nothing.
func (h *Hub) start(c *Client) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.wg.Add(2)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump(h.ctx)
	}()
	return nil
}

// shutdownSessions closes every session without announcing departures or
// persisting leave events.
func (h *Hub) shutdownSessions() {
	h.logger.Info("shutting down all sessions")

	h.mu.Lock()
	h.closed = true
	sessions := make([]*Session, 0, len(h.sessions))
	for id, s := range h.sessions {
		s.state = StateClosed
		h.roster.Remove(id)
		delete(h.sessions, id)
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		if err := s.out.Close(); err != nil && !isExpectedCloseError(err) {
			h.logger.Warn("error closing session transport", "session", s.id, "error", err)
		}
	}

	h.logger.Info("closed sessions", "count", len(sessions))
}

// Shutdown closes all sessions, waits for their goroutines and then for
// in-flight event appends. It returns context.DeadlineExceeded if either
// wait outlasts timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	h.shutdownSessions()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return ctx.Err()
	}

	if err := h.events.Wait(ctx); err != nil {
		h.logger.Warn("pending event appends did not finish", "error", err)
		return err
	}

	h.logger.Info("hub shutdown completed successfully")
	return nil
}
