// Package roster tracks the display names announced by live connections.
package roster

import (
	"sort"
	"sync"
)

// Roster maps connection identifiers to announced display names. It is safe
// for concurrent use. Operations on different identifiers commute; operations
// on the same identifier apply in call order.
type Roster struct {
	mu    sync.RWMutex
	names map[string]string
}

// New returns an empty Roster.
func New() *Roster {
	return &Roster{names: make(map[string]string)}
}

// SetName records name for id, overwriting any earlier announcement.
func (r *Roster) SetName(id, name string) {
	r.mu.Lock()
	r.names[id] = name
	r.mu.Unlock()
}

// Remove deletes the entry for id and returns the name it held. Removing an
// id that never announced a name is a no-op that reports ok == false.
func (r *Roster) Remove(id string) (name string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok = r.names[id]
	if ok {
		delete(r.names, id)
	}
	return name, ok
}

// Name returns the display name announced for id, if any.
func (r *Roster) Name(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.names[id]
	return name, ok
}

// Snapshot returns the announced names at a single point in time, sorted so
// that repeated reads of an unchanged roster are identical. Two connections
// announcing the same name appear twice.
func (r *Roster) Snapshot() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.names))
	for _, name := range r.names {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len reports how many connections have announced a name.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
