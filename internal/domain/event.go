package domain

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
)

// Inbound event names. These are the browser-facing protocol and must
// not change spelling.
const (
	EventJoin         = "join"
	EventCallUser     = "call_user"
	EventAcceptCall   = "accept_call"
	EventRejectCall   = "reject_call"
	EventEndCall      = "end_call"
	EventICECandidate = "ice_candidate"
)

// Outbound event names. ice_candidate is shared with the inbound set.
const (
	EventJoinSuccess  = "join_success"
	EventUsersUpdated = "users_updated"
	EventIncomingCall = "incoming_call"
	EventCallStatus   = "call_status"
	EventCallAccepted = "call_accepted"
	EventCallRejected = "call_rejected"
	EventCallEnded    = "call_ended"
)

// call_status values reported to the caller.
const (
	CallStatusRinging     = "ringing"
	CallStatusUserOffline = "user_offline"
)

// ClientEvent is the envelope for every inbound frame. The transport
// decodes only the envelope; the payload stays raw until the
// coordinator knows which event it is handling.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEvent is the envelope for every outbound frame.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// UserRef identifies a user inside event payloads.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// JoinData announces the identity for a connection.
type JoinData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CallUserData asks the server to ring another user. The SDP offer is
// relayed opaquely; the server never inspects it. From is what the
// client believes about itself, the server trusts the join-bound
// identity instead.
type CallUserData struct {
	To       string                    `json:"to"`
	From     UserRef                   `json:"from"`
	CallType string                    `json:"callType"`
	Offer    webrtc.SessionDescription `json:"offer"`
}

// AcceptCallData answers a ringing call.
type AcceptCallData struct {
	CallID string                    `json:"callId"`
	Answer webrtc.SessionDescription `json:"answer"`
}

// RejectCallData declines a ringing call.
type RejectCallData struct {
	CallID string `json:"callId"`
}

// EndCallData hangs up a call.
type EndCallData struct {
	CallID string `json:"callId"`
}

// ICECandidateData relays an ICE candidate to another user.
type ICECandidateData struct {
	To        string                  `json:"to"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

// JoinSuccessData acknowledges a join and carries the current online
// snapshot.
type JoinSuccessData struct {
	Message     string       `json:"message"`
	OnlineUsers []OnlineUser `json:"onlineUsers"`
}

// UsersUpdatedData carries the online snapshot after any presence
// change.
type UsersUpdatedData struct {
	OnlineUsers []OnlineUser `json:"onlineUsers"`
}

// IncomingCallData rings the callee.
type IncomingCallData struct {
	CallID   string                    `json:"callId"`
	From     UserRef                   `json:"from"`
	CallType string                    `json:"callType"`
	Offer    webrtc.SessionDescription `json:"offer"`
}

// CallStatusData reports call progress to the caller. CallID is set
// for ringing and empty for user_offline, where no record was created.
type CallStatusData struct {
	Status string `json:"status"`
	CallID string `json:"callId,omitempty"`
}

// CallAcceptedData relays the callee's answer to the caller.
type CallAcceptedData struct {
	CallID string                    `json:"callId"`
	Answer webrtc.SessionDescription `json:"answer"`
}

// CallRejectedData tells the caller the callee declined.
type CallRejectedData struct {
	CallID string `json:"callId"`
}

// CallEndedData tells a participant the call is over, whether by
// hang-up or because the peer disconnected.
type CallEndedData struct {
	CallID string `json:"callId"`
}

// ICECandidateForward is the outbound form of a relayed candidate,
// stamped with the sender's id.
type ICECandidateForward struct {
	From      string                  `json:"from"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}
