// Package memory provides the in-process repositories backing the
// signaling service. All state lives for the lifetime of the process;
// a restart empties every table, which is the intended behavior for a
// relay whose clients reconnect and re-join on their own.
package memory

import (
	"sync"
	"time"

	"peercall-backend/internal/domain"
)

// PresenceRepository maps live connections to user identities.
// Entries are keyed by connection id internally so a disconnect can be
// resolved without knowing who the connection belonged to, with a
// user-id index on top because all call routing happens by user id.
//
// The repository keeps its own lock: the signaling coordinator
// serializes mutation, but the HTTP users listing reads the snapshot
// from request goroutines.
type PresenceRepository struct {
	mu     sync.RWMutex
	byConn map[string]*domain.PresenceEntry
	byUser map[string]string // user id -> connection id
	order  []string          // user ids in registration order
}

// NewPresenceRepository creates an empty presence registry.
func NewPresenceRepository() *PresenceRepository {
	return &PresenceRepository{
		byConn: make(map[string]*domain.PresenceEntry),
		byUser: make(map[string]string),
	}
}

// Register inserts a presence entry for userID, replacing any previous
// entry for the same user or the same connection. Replacement is
// deliberate: a page reload joins from a fresh connection before the
// stale one times out, and the newest join always wins. The replaced
// user re-enters the snapshot at the end of the order.
func (r *PresenceRepository) Register(userID, username, connectionID string) *domain.PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if oldConn, ok := r.byUser[userID]; ok {
		delete(r.byConn, oldConn)
		r.removeFromOrder(userID)
	}
	if old, ok := r.byConn[connectionID]; ok {
		// Same connection re-joining as a different user.
		delete(r.byUser, old.UserID)
		r.removeFromOrder(old.UserID)
	}

	entry := &domain.PresenceEntry{
		UserID:       userID,
		Username:     username,
		ConnectionID: connectionID,
		OnlineSince:  time.Now().UTC(),
	}
	r.byConn[connectionID] = entry
	r.byUser[userID] = connectionID
	r.order = append(r.order, userID)

	e := *entry
	return &e
}

// Unregister removes the entry for connectionID and returns it.
// Unknown connections are a no-op: a connection that was replaced by a
// reconnect, or that never joined, has nothing to tear down.
func (r *PresenceRepository) Unregister(connectionID string) (*domain.PresenceEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byConn[connectionID]
	if !ok {
		return nil, false
	}

	delete(r.byConn, connectionID)
	delete(r.byUser, entry.UserID)
	r.removeFromOrder(entry.UserID)

	e := *entry
	return &e, true
}

// Lookup resolves a user id to its current presence entry.
func (r *PresenceRepository) Lookup(userID string) (*domain.PresenceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.byUser[userID]
	if !ok {
		return nil, false
	}
	e := *r.byConn[connID]
	return &e, true
}

// LookupConnection resolves a connection id to its presence entry.
func (r *PresenceRepository) LookupConnection(connectionID string) (*domain.PresenceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byConn[connectionID]
	if !ok {
		return nil, false
	}
	e := *entry
	return &e, true
}

// ListOnline returns a stable snapshot of everyone online, in
// registration order. The returned slice is a copy and is not affected
// by later registry changes.
func (r *PresenceRepository) ListOnline() []domain.PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.PresenceEntry, 0, len(r.order))
	for _, userID := range r.order {
		if connID, ok := r.byUser[userID]; ok {
			out = append(out, *r.byConn[connID])
		}
	}
	return out
}

// Count returns the number of online users.
func (r *PresenceRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// removeFromOrder drops userID from the registration order.
// Caller holds the write lock.
func (r *PresenceRepository) removeFromOrder(userID string) {
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
