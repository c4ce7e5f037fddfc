package socketio

import (
	"slices"
	"sync"
)

// ViewRegistry tracks connected views. The oldest connected view controls
// playback; the rest observe. Remote (non-localhost) views are capped: when a
// new remote view exceeds the cap, the oldest remote view is evicted.
type ViewRegistry struct {
	mu        sync.Mutex
	maxRemote int
	// all views in connection order (oldest first)
	order []string
	// ordered slice of remote view IDs (oldest first)
	remote []string
	// all tracked views: clientID -> remoteIP
	views map[string]string
}

// NewViewRegistry creates a registry that allows up to maxRemote concurrent
// non-localhost views. A cap below one means unlimited.
func NewViewRegistry(maxRemote int) *ViewRegistry {
	return &ViewRegistry{
		maxRemote: maxRemote,
		views:     make(map[string]string),
	}
}

// Add registers a new view and returns the ID of any evicted remote view
// (empty string if none). Adding a tracked view is a no-op.
func (r *ViewRegistry) Add(clientID, remoteIP string) (evictedID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.views[clientID]; exists {
		return ""
	}

	r.views[clientID] = remoteIP
	r.order = append(r.order, clientID)

	if isLocalIP(remoteIP) {
		return ""
	}

	r.remote = append(r.remote, clientID)
	if r.maxRemote < 1 || len(r.remote) <= r.maxRemote {
		return ""
	}

	evictedID = r.remote[0]
	r.removeLocked(evictedID)
	return evictedID
}

// Remove unregisters a view when it disconnects. If the controlling view
// left, the ID of the newly promoted controller is returned.
func (r *ViewRegistry) Remove(clientID string) (promotedID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasController := len(r.order) > 0 && r.order[0] == clientID
	if !r.removeLocked(clientID) {
		return ""
	}
	if wasController && len(r.order) > 0 {
		return r.order[0]
	}
	return ""
}

func (r *ViewRegistry) removeLocked(clientID string) bool {
	if _, exists := r.views[clientID]; !exists {
		return false
	}
	delete(r.views, clientID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == clientID })
	r.remote = slices.DeleteFunc(r.remote, func(id string) bool { return id == clientID })
	return true
}

// Controller returns the ID of the controlling view, or "" when none is connected.
func (r *ViewRegistry) Controller() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}

// IsController reports whether clientID is the controlling view.
func (r *ViewRegistry) IsController(clientID string) bool {
	return clientID != "" && r.Controller() == clientID
}

// Count returns the number of connected views.
func (r *ViewRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// isLocalIP returns true if the IP address is localhost.
func isLocalIP(ip string) bool {
	return ip == "127.0.0.1" || ip == "::1"
}
