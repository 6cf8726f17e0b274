package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"peercall-backend/internal/domain"
)

// PresenceChecker is the presence view the call table consults when a
// call is created. Both participants must be online at creation time.
type PresenceChecker interface {
	Lookup(userID string) (*domain.PresenceEntry, bool)
}

// CallRepository holds every non-terminal call record. A record is
// created ringing and deleted the moment it reaches a terminal state,
// so the table only ever contains calls that are ringing or connected.
type CallRepository struct {
	mu       sync.Mutex
	presence PresenceChecker
	calls    map[uuid.UUID]*domain.Call
	order    []uuid.UUID
}

// NewCallRepository creates an empty call table backed by the given
// presence view.
func NewCallRepository(presence PresenceChecker) *CallRepository {
	return &CallRepository{
		presence: presence,
		calls:    make(map[uuid.UUID]*domain.Call),
	}
}

// Create inserts a new ringing call between two online users and
// returns the record. Presence is re-checked for both participants at
// insert time; a vanished participant fails with ErrTargetOffline.
func (r *CallRepository) Create(caller *domain.PresenceEntry, calleeID string, mediaType domain.MediaType) (*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.presence.Lookup(calleeID); !ok {
		return nil, fmt.Errorf("callee %s: %w", calleeID, domain.ErrTargetOffline)
	}
	if _, ok := r.presence.Lookup(caller.UserID); !ok {
		return nil, fmt.Errorf("caller %s: %w", caller.UserID, domain.ErrTargetOffline)
	}

	call := &domain.Call{
		CallID:         uuid.New(),
		CallerID:       caller.UserID,
		CallerUsername: caller.Username,
		CalleeID:       calleeID,
		MediaType:      mediaType,
		State:          domain.CallStateRinging,
		CreatedAt:      time.Now().UTC(),
	}
	r.calls[call.CallID] = call
	r.order = append(r.order, call.CallID)

	c := *call
	return &c, nil
}

// Get returns a copy of the record for callID.
func (r *CallRepository) Get(callID uuid.UUID) (*domain.Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[callID]
	if !ok {
		return nil, false
	}
	c := *call
	return &c, true
}

// Transition applies a lifecycle event to the record for callID and
// returns the updated record. A record that reaches a terminal state
// is removed from the table, so a second termination attempt fails
// with ErrUnknownCall rather than double-firing.
func (r *CallRepository) Transition(callID uuid.UUID, event domain.CallEvent) (*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[callID]
	if !ok {
		return nil, fmt.Errorf("call %s: %w", callID, domain.ErrUnknownCall)
	}

	next, err := domain.NextState(call.State, event)
	if err != nil {
		return nil, err
	}

	call.State = next
	c := *call
	if next.Terminal() {
		r.remove(callID)
	}
	return &c, nil
}

// FindByParticipant returns every live call in which userID is the
// caller or the callee, in creation order.
func (r *CallRepository) FindByParticipant(userID string) []*domain.Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Call
	for _, callID := range r.order {
		if call, ok := r.calls[callID]; ok && call.HasParticipant(userID) {
			c := *call
			out = append(out, &c)
		}
	}
	return out
}

// Count returns the number of live call records.
func (r *CallRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// remove deletes the record for callID from the table and the creation
// order. Caller holds the lock.
func (r *CallRepository) remove(callID uuid.UUID) {
	delete(r.calls, callID)
	for i, id := range r.order {
		if id == callID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
