package presence

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Handle is a live transport connection as seen by the registry.
// The registry references handles, it never owns or closes them.
type Handle interface {
	ID() string
}

// Registry maps user identities to their live connection handles.
//
// A user may hold several handles (several tabs or devices). Lookup always
// resolves to the most recently identified one; the user stays in the online
// set until every handle has been removed.
type Registry struct {
	byUser   map[string][]Handle // user_id -> handles, most recent last
	byHandle map[string]string   // handle_id -> user_id
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byUser:   make(map[string][]Handle),
		byHandle: make(map[string]string),
	}
}

// Identify binds h to userID, replacing it as the lookup target for that user.
// It reports whether userID just came online. Calling it again with the same
// pair changes nothing.
func (r *Registry) Identify(userID string, h Handle) (cameOnline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handleID := h.ID()

	// A connection re-identifying as somebody else leaves its old identity.
	if prev, ok := r.byHandle[handleID]; ok && prev != userID {
		r.detach(prev, handleID)
	}

	handles := r.byUser[userID]
	cameOnline = len(handles) == 0
	if n := len(handles); n > 0 && handles[n-1].ID() == handleID {
		return false
	}

	handles = lo.Reject(handles, func(existing Handle, _ int) bool {
		return existing.ID() == handleID
	})
	r.byUser[userID] = append(handles, h)
	r.byHandle[handleID] = userID
	return cameOnline
}

// Lookup returns the handle that deliveries for userID should go to
func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := r.byUser[userID]
	if len(handles) == 0 {
		return nil, false
	}
	return handles[len(handles)-1], true
}

// Remove drops the handle with the given id. It returns the user the handle
// was bound to and whether that user went offline as a result. A handle that
// never identified yields ("", false).
func (r *Registry) Remove(handleID string) (userID string, wentOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byHandle[handleID]
	if !ok {
		return "", false
	}
	return userID, r.detach(userID, handleID)
}

// detach must be called with the write lock held
func (r *Registry) detach(userID, handleID string) (wentOffline bool) {
	delete(r.byHandle, handleID)

	remaining := lo.Reject(r.byUser[userID], func(h Handle, _ int) bool {
		return h.ID() == handleID
	})
	if len(remaining) == 0 {
		delete(r.byUser, userID)
		return true
	}
	r.byUser[userID] = remaining
	return false
}

// IsOnline reports whether userID has at least one live handle
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// OnlineUsers recomputes the online set, sorted for stable output
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	users := lo.Keys(r.byUser)
	r.mu.RUnlock()

	sort.Strings(users)
	return users
}

// Count returns the number of online users
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// CountHandles returns the number of identified handles across all users
func (r *Registry) CountHandles() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHandle)
}
