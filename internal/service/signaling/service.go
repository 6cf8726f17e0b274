// Package signaling implements the event-driven core of the relay: it
// owns the presence registry and the call table, and it is the only
// component that mutates them.
package signaling

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"peercall-backend/internal/domain"
	"peercall-backend/pkg/logger"
	"peercall-backend/pkg/metrics"
)

// PresenceRegistry interface
type PresenceRegistry interface {
	Register(userID, username, connectionID string) *domain.PresenceEntry
	Unregister(connectionID string) (*domain.PresenceEntry, bool)
	Lookup(userID string) (*domain.PresenceEntry, bool)
	LookupConnection(connectionID string) (*domain.PresenceEntry, bool)
	ListOnline() []domain.PresenceEntry
	Count() int
}

// CallTable interface
type CallTable interface {
	Create(caller *domain.PresenceEntry, calleeID string, mediaType domain.MediaType) (*domain.Call, error)
	Get(callID uuid.UUID) (*domain.Call, bool)
	Transition(callID uuid.UUID, event domain.CallEvent) (*domain.Call, error)
	FindByParticipant(userID string) []*domain.Call
	Count() int
}

// Gateway delivers events to connected clients. Send targets a single
// connection, Broadcast reaches everyone. Implementations must not
// block: delivery is fire-and-forget and a slow client is the
// gateway's problem, never the coordinator's.
type Gateway interface {
	Send(connectionID string, event domain.ServerEvent) error
	Broadcast(event domain.ServerEvent)
}

// Service coordinates signaling between connected clients.
//
// A single mutex serializes Dispatch and HandleDisconnect, so every
// handler observes and mutates presence and call state atomically.
// Events from one connection arrive in order (the transport reads
// frames sequentially); events from different connections are ordered
// by whoever takes the lock first, and the loser of a race sees state
// the winner left behind, which the handlers treat as a normal
// outcome rather than an error.
type Service struct {
	mu       sync.Mutex
	presence PresenceRegistry
	calls    CallTable
	gateway  Gateway
	metrics  *metrics.Metrics
}

// NewService creates a new signaling service
func NewService(presence PresenceRegistry, calls CallTable, gateway Gateway, m *metrics.Metrics) *Service {
	return &Service{
		presence: presence,
		calls:    calls,
		gateway:  gateway,
		metrics:  m,
	}
}

// Dispatch decodes and routes one inbound event from a connection.
// Unknown events and malformed payloads are dropped with a log line;
// nothing a client sends can return an error to the transport.
func (s *Service) Dispatch(connectionID string, evt domain.ClientEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.RecordSignalEvent(evt.Event)

	switch evt.Event {
	case domain.EventJoin:
		var data domain.JoinData
		if s.decode(evt, &data, connectionID) {
			s.handleJoin(connectionID, &data)
		}
	case domain.EventCallUser:
		var data domain.CallUserData
		if s.decode(evt, &data, connectionID) {
			s.handleCallUser(connectionID, &data)
		}
	case domain.EventAcceptCall:
		var data domain.AcceptCallData
		if s.decode(evt, &data, connectionID) {
			s.handleAcceptCall(connectionID, &data)
		}
	case domain.EventRejectCall:
		var data domain.RejectCallData
		if s.decode(evt, &data, connectionID) {
			s.handleRejectCall(connectionID, &data)
		}
	case domain.EventEndCall:
		var data domain.EndCallData
		if s.decode(evt, &data, connectionID) {
			s.handleEndCall(connectionID, &data)
		}
	case domain.EventICECandidate:
		var data domain.ICECandidateData
		if s.decode(evt, &data, connectionID) {
			s.handleICECandidate(connectionID, &data)
		}
	default:
		s.metrics.RecordSignalDrop(metrics.DropUnknownEvent)
		logger.Warn("unknown signaling event",
			zap.String("event", evt.Event),
			zap.String("connection_id", connectionID))
	}
}

// HandleDisconnect tears down everything a closed connection left
// behind: its presence entry and every live call it participated in.
// Each surviving peer is told call_ended exactly once per abandoned
// call, then everyone gets the shrunk online list.
func (s *Service) HandleDisconnect(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.presence.Unregister(connectionID)
	if !ok {
		// Never joined, or already replaced by a reconnect.
		return
	}
	s.metrics.SetOnlineUsers(s.presence.Count())
	logger.Info("user disconnected",
		zap.String("user_id", entry.UserID),
		zap.String("connection_id", connectionID))

	for _, call := range s.calls.FindByParticipant(entry.UserID) {
		abandoned, err := s.calls.Transition(call.CallID, domain.CallEventAbandon)
		if err != nil {
			s.swallowTransitionErr(err, "disconnect", call.CallID)
			continue
		}
		s.metrics.RecordCall(string(abandoned.MediaType), string(abandoned.State))
		logger.Info("call abandoned",
			zap.String("call_id", abandoned.CallID.String()),
			zap.String("user_id", entry.UserID))

		if peer, ok := abandoned.OtherParticipant(entry.UserID); ok {
			if peerEntry, online := s.presence.Lookup(peer); online {
				s.send(peerEntry.ConnectionID, domain.ServerEvent{
					Event: domain.EventCallEnded,
					Data:  domain.CallEndedData{CallID: abandoned.CallID.String()},
				})
			}
		}
	}
	s.metrics.SetActiveCalls(s.calls.Count())

	s.broadcastUsers(s.onlineSnapshot())
}

// OnlineUsers returns the current presence snapshot for the HTTP API.
// It reads through the registry's own lock and does not serialize
// against event handling.
func (s *Service) OnlineUsers() []domain.User {
	entries := s.presence.ListOnline()
	users := make([]domain.User, 0, len(entries))
	for i := range entries {
		users = append(users, entries[i].ToUser())
	}
	return users
}

func (s *Service) handleJoin(connectionID string, data *domain.JoinData) {
	if data.ID == "" || data.Username == "" {
		s.metrics.RecordSignalDrop(metrics.DropBadPayload)
		logger.Warn("join without identity",
			zap.String("connection_id", connectionID))
		return
	}

	entry := s.presence.Register(data.ID, data.Username, connectionID)
	s.metrics.SetOnlineUsers(s.presence.Count())
	logger.Info("user joined",
		zap.String("user_id", entry.UserID),
		zap.String("username", entry.Username),
		zap.String("connection_id", connectionID))

	snapshot := s.onlineSnapshot()
	s.send(connectionID, domain.ServerEvent{
		Event: domain.EventJoinSuccess,
		Data: domain.JoinSuccessData{
			Message:     "successfully joined",
			OnlineUsers: snapshot,
		},
	})
	s.broadcastUsers(snapshot)
}

func (s *Service) handleCallUser(connectionID string, data *domain.CallUserData) {
	caller, ok := s.sender(connectionID, domain.EventCallUser)
	if !ok {
		return
	}

	mediaType, err := domain.ParseMediaType(data.CallType)
	if err != nil {
		s.metrics.RecordSignalDrop(metrics.DropBadMediaType)
		logger.Warn("call with unknown media type",
			zap.String("call_type", data.CallType),
			zap.String("user_id", caller.UserID))
		return
	}

	if data.To == caller.UserID {
		s.metrics.RecordSignalDrop(metrics.DropSelfCall)
		logger.Warn("user tried to call themselves",
			zap.String("user_id", caller.UserID))
		return
	}

	callee, ok := s.presence.Lookup(data.To)
	if !ok {
		s.metrics.RecordSignalDrop(metrics.DropTargetOffline)
		logger.Debug("callee offline",
			zap.String("caller_id", caller.UserID),
			zap.String("callee_id", data.To))
		s.send(connectionID, domain.ServerEvent{
			Event: domain.EventCallStatus,
			Data:  domain.CallStatusData{Status: domain.CallStatusUserOffline},
		})
		return
	}

	call, err := s.calls.Create(caller, data.To, mediaType)
	if err != nil {
		// The table re-checked presence and disagreed; same answer as
		// an offline callee.
		s.metrics.RecordSignalDrop(metrics.DropTargetOffline)
		logger.Debug("call creation refused",
			zap.String("caller_id", caller.UserID),
			zap.String("callee_id", data.To),
			zap.Error(err))
		s.send(connectionID, domain.ServerEvent{
			Event: domain.EventCallStatus,
			Data:  domain.CallStatusData{Status: domain.CallStatusUserOffline},
		})
		return
	}
	s.metrics.RecordCall(string(call.MediaType), string(call.State))
	s.metrics.SetActiveCalls(s.calls.Count())
	logger.Info("call ringing",
		zap.String("call_id", call.CallID.String()),
		zap.String("caller_id", call.CallerID),
		zap.String("callee_id", call.CalleeID),
		zap.String("call_type", string(call.MediaType)))

	s.send(callee.ConnectionID, domain.ServerEvent{
		Event: domain.EventIncomingCall,
		Data: domain.IncomingCallData{
			CallID:   call.CallID.String(),
			From:     domain.UserRef{ID: caller.UserID, Username: caller.Username},
			CallType: data.CallType,
			Offer:    data.Offer,
		},
	})
	s.send(connectionID, domain.ServerEvent{
		Event: domain.EventCallStatus,
		Data: domain.CallStatusData{
			Status: domain.CallStatusRinging,
			CallID: call.CallID.String(),
		},
	})
}

func (s *Service) handleAcceptCall(connectionID string, data *domain.AcceptCallData) {
	sender, ok := s.sender(connectionID, domain.EventAcceptCall)
	if !ok {
		return
	}
	callID, ok := s.parseCallID(data.CallID, domain.EventAcceptCall, connectionID)
	if !ok {
		return
	}

	call, ok := s.calls.Get(callID)
	if !ok {
		// Caller hung up or disconnected first; nothing to accept.
		s.metrics.RecordSignalDrop(metrics.DropUnknownCall)
		logger.Debug("accept for unknown call",
			zap.String("call_id", data.CallID),
			zap.String("user_id", sender.UserID))
		return
	}
	if call.CalleeID != sender.UserID {
		s.metrics.RecordSignalDrop(metrics.DropNotParticipant)
		logger.Warn("accept from a user who is not the callee",
			zap.String("call_id", data.CallID),
			zap.String("user_id", sender.UserID))
		return
	}

	call, err := s.calls.Transition(callID, domain.CallEventAccept)
	if err != nil {
		s.swallowTransitionErr(err, domain.EventAcceptCall, callID)
		return
	}
	s.metrics.RecordCall(string(call.MediaType), string(call.State))
	logger.Info("call accepted",
		zap.String("call_id", data.CallID),
		zap.String("callee_id", sender.UserID))

	// Resolve the caller's connection now, not at ring time: the caller
	// may have reconnected while the call was ringing.
	callerEntry, ok := s.presence.Lookup(call.CallerID)
	if !ok {
		s.metrics.RecordSignalDrop(metrics.DropTargetOffline)
		logger.Debug("caller offline at answer delivery",
			zap.String("call_id", data.CallID),
			zap.String("caller_id", call.CallerID))
		return
	}
	s.send(callerEntry.ConnectionID, domain.ServerEvent{
		Event: domain.EventCallAccepted,
		Data:  domain.CallAcceptedData{CallID: data.CallID, Answer: data.Answer},
	})
}

func (s *Service) handleRejectCall(connectionID string, data *domain.RejectCallData) {
	sender, ok := s.sender(connectionID, domain.EventRejectCall)
	if !ok {
		return
	}
	callID, ok := s.parseCallID(data.CallID, domain.EventRejectCall, connectionID)
	if !ok {
		return
	}

	call, ok := s.calls.Get(callID)
	if !ok {
		s.metrics.RecordSignalDrop(metrics.DropUnknownCall)
		logger.Debug("reject for unknown call",
			zap.String("call_id", data.CallID),
			zap.String("user_id", sender.UserID))
		return
	}
	if call.CalleeID != sender.UserID {
		s.metrics.RecordSignalDrop(metrics.DropNotParticipant)
		logger.Warn("reject from a user who is not the callee",
			zap.String("call_id", data.CallID),
			zap.String("user_id", sender.UserID))
		return
	}

	call, err := s.calls.Transition(callID, domain.CallEventReject)
	if err != nil {
		s.swallowTransitionErr(err, domain.EventRejectCall, callID)
		return
	}
	s.metrics.RecordCall(string(call.MediaType), string(call.State))
	s.metrics.SetActiveCalls(s.calls.Count())
	logger.Info("call rejected",
		zap.String("call_id", data.CallID),
		zap.String("callee_id", sender.UserID))

	// Only the caller hears about a rejection.
	if callerEntry, ok := s.presence.Lookup(call.CallerID); ok {
		s.send(callerEntry.ConnectionID, domain.ServerEvent{
			Event: domain.EventCallRejected,
			Data:  domain.CallRejectedData{CallID: data.CallID},
		})
	}
}

func (s *Service) handleEndCall(connectionID string, data *domain.EndCallData) {
	sender, ok := s.sender(connectionID, domain.EventEndCall)
	if !ok {
		return
	}
	callID, ok := s.parseCallID(data.CallID, domain.EventEndCall, connectionID)
	if !ok {
		return
	}

	call, ok := s.calls.Get(callID)
	if !ok {
		// Both sides hitting hang up at once is normal; the second
		// request finds nothing.
		s.metrics.RecordSignalDrop(metrics.DropUnknownCall)
		logger.Debug("end for unknown call",
			zap.String("call_id", data.CallID),
			zap.String("user_id", sender.UserID))
		return
	}
	if !call.HasParticipant(sender.UserID) {
		s.metrics.RecordSignalDrop(metrics.DropNotParticipant)
		logger.Warn("end from a user who is not a participant",
			zap.String("call_id", data.CallID),
			zap.String("user_id", sender.UserID))
		return
	}

	call, err := s.calls.Transition(callID, domain.CallEventEnd)
	if err != nil {
		s.swallowTransitionErr(err, domain.EventEndCall, callID)
		return
	}
	s.metrics.RecordCall(string(call.MediaType), string(call.State))
	s.metrics.SetActiveCalls(s.calls.Count())
	logger.Info("call ended",
		zap.String("call_id", data.CallID),
		zap.String("user_id", sender.UserID))

	if peer, ok := call.OtherParticipant(sender.UserID); ok {
		if peerEntry, online := s.presence.Lookup(peer); online {
			s.send(peerEntry.ConnectionID, domain.ServerEvent{
				Event: domain.EventCallEnded,
				Data:  domain.CallEndedData{CallID: data.CallID},
			})
		}
	}
}

func (s *Service) handleICECandidate(connectionID string, data *domain.ICECandidateData) {
	sender, ok := s.sender(connectionID, domain.EventICECandidate)
	if !ok {
		return
	}

	target, ok := s.presence.Lookup(data.To)
	if !ok {
		// Candidates race against disconnects constantly; drop quietly.
		s.metrics.RecordSignalDrop(metrics.DropTargetOffline)
		logger.Debug("candidate for offline user",
			zap.String("from", sender.UserID),
			zap.String("to", data.To))
		return
	}

	s.send(target.ConnectionID, domain.ServerEvent{
		Event: domain.EventICECandidate,
		Data: domain.ICECandidateForward{
			From:      sender.UserID,
			Candidate: data.Candidate,
		},
	})
}

// sender resolves the presence entry behind a connection. Everything
// except join requires one; events from connections that never joined
// are dropped.
func (s *Service) sender(connectionID, event string) (*domain.PresenceEntry, bool) {
	entry, ok := s.presence.LookupConnection(connectionID)
	if !ok {
		s.metrics.RecordSignalDrop(metrics.DropNoPresence)
		logger.Warn("event from connection without presence",
			zap.String("event", event),
			zap.String("connection_id", connectionID))
		return nil, false
	}
	return entry, true
}

func (s *Service) decode(evt domain.ClientEvent, v any, connectionID string) bool {
	if err := json.Unmarshal(evt.Data, v); err != nil {
		s.metrics.RecordSignalDrop(metrics.DropBadPayload)
		logger.Warn("malformed event payload",
			zap.String("event", evt.Event),
			zap.String("connection_id", connectionID),
			zap.Error(err))
		return false
	}
	return true
}

func (s *Service) parseCallID(raw, event, connectionID string) (uuid.UUID, bool) {
	callID, err := uuid.Parse(raw)
	if err != nil {
		s.metrics.RecordSignalDrop(metrics.DropBadCallID)
		logger.Warn("malformed call id",
			zap.String("event", event),
			zap.String("connection_id", connectionID),
			zap.String("call_id", raw))
		return uuid.Nil, false
	}
	return callID, true
}

func (s *Service) swallowTransitionErr(err error, event string, callID uuid.UUID) {
	switch {
	case errors.Is(err, domain.ErrUnknownCall):
		s.metrics.RecordSignalDrop(metrics.DropUnknownCall)
		logger.Debug("event for unknown call",
			zap.String("event", event),
			zap.String("call_id", callID.String()))
	case errors.Is(err, domain.ErrInvalidTransition):
		s.metrics.RecordSignalDrop(metrics.DropInvalidTransition)
		logger.Debug("event lost a state race",
			zap.String("event", event),
			zap.String("call_id", callID.String()),
			zap.Error(err))
	default:
		logger.Error("call transition failed",
			zap.String("event", event),
			zap.String("call_id", callID.String()),
			zap.Error(err))
	}
}

func (s *Service) send(connectionID string, event domain.ServerEvent) {
	if err := s.gateway.Send(connectionID, event); err != nil {
		s.metrics.RecordSignalDrop(metrics.DropSendFailed)
		logger.Debug("outbound event dropped",
			zap.String("event", event.Event),
			zap.String("connection_id", connectionID),
			zap.Error(err))
	}
}

func (s *Service) broadcastUsers(snapshot []domain.OnlineUser) {
	s.gateway.Broadcast(domain.ServerEvent{
		Event: domain.EventUsersUpdated,
		Data:  domain.UsersUpdatedData{OnlineUsers: snapshot},
	})
}

func (s *Service) onlineSnapshot() []domain.OnlineUser {
	entries := s.presence.ListOnline()
	users := make([]domain.OnlineUser, 0, len(entries))
	for i := range entries {
		users = append(users, entries[i].ToOnlineUser())
	}
	return users
}
