// Package eventlog persists chat events to an external store and replays
// them to connecting clients without ever blocking the broadcast path.
package eventlog

import (
	"context"
	"time"
)

// Kind classifies a chat event.
type Kind string

// Event kinds.
const (
	KindJoin    Kind = "system-join"
	KindLeave   Kind = "system-leave"
	KindMessage Kind = "user-message"
)

// SystemName is the display name carried by join and leave events.
const SystemName = "System"

// Record is one chat event as broadcast and persisted. Records are built by
// the hub and never modified afterwards; ID is assigned by the store.
type Record struct {
	ID          string    `json:"id,omitempty"`
	Kind        Kind      `json:"kind"`
	DisplayName string    `json:"displayName"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
}

// Store is the durable side of the event log. Implementations assign their
// own document identifiers on Append; List returns records in whatever order
// the store keeps them.
type Store interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context) ([]Record, error)
}
