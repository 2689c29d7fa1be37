// Package registry tracks which users currently hold open live connections.
//
// The registry is process-local and non-persistent: a restart loses all
// connection state and clients are expected to reconnect. One user may hold
// several handles at once (multiple browser tabs).
package registry

import "sync"

// ConnectionRegistry is a concurrency-safe map from user ID to the set of
// open connection handle IDs.
type ConnectionRegistry struct {
	mu      sync.RWMutex
	handles map[string]map[string]struct{}
}

func New() *ConnectionRegistry {
	return &ConnectionRegistry{
		handles: make(map[string]map[string]struct{}),
	}
}

// Register records an open connection handle for userID.
func (r *ConnectionRegistry) Register(userID, handleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.handles[userID]
	if !ok {
		set = make(map[string]struct{})
		r.handles[userID] = set
	}
	set[handleID] = struct{}{}
}

// Unregister removes one handle. The user's entry is deleted entirely when
// the last handle closes, so the map never accumulates empty sets.
func (r *ConnectionRegistry) Unregister(userID, handleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.handles[userID]
	if !ok {
		return
	}
	delete(set, handleID)
	if len(set) == 0 {
		delete(r.handles, userID)
	}
}

// IsOnline reports whether the user has at least one open handle.
// This is a point-in-time snapshot: the user may disconnect between this
// call and a subsequent push, in which case the push is a swallowed no-op.
func (r *ConnectionRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles[userID]) > 0
}

// HandleCount returns the number of open handles for the user.
func (r *ConnectionRegistry) HandleCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles[userID])
}

// OnlineUsers returns a snapshot of all users with at least one open handle.
func (r *ConnectionRegistry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.handles))
	for userID := range r.handles {
		users = append(users, userID)
	}
	return users
}

// OnlineCount returns the number of distinct online users.
func (r *ConnectionRegistry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
