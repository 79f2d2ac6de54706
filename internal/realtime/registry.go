package realtime

import (
	"sort"
	"sync"
)

// Registry maps a user id to the id of the single live connection that
// currently represents that user. The most recent Register wins; an older
// connection of the same user stays open but is no longer addressable.
//
// A Registry is owned by one Gateway, which is the only writer. Other
// components read through Lookup and Snapshot.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]string // user id -> connection id
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]string)}
}

// Register maps userID to connID, replacing any previous mapping.
func (r *Registry) Register(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = connID
}

// Unregister removes the mapping for userID only when it still points at
// connID. A late disconnect from a superseded connection leaves the newer
// mapping in place. It reports whether an entry was removed.
func (r *Registry) Unregister(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.conns[userID]
	if !ok || current != connID {
		return false
	}
	delete(r.conns, userID)
	return true
}

// Lookup returns the connection id registered for userID.
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.conns[userID]
	return connID, ok
}

// Snapshot returns the ids of all online users in ascending order.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.conns))
	for userID := range r.conns {
		ids = append(ids, userID)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of online users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
