package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MediaType is the media mode requested for a call.
type MediaType string

const (
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
)

// ParseMediaType validates a wire callType value.
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(s) {
	case MediaTypeAudio:
		return MediaTypeAudio, nil
	case MediaTypeVideo:
		return MediaTypeVideo, nil
	default:
		return "", fmt.Errorf("unknown media type %q", s)
	}
}

// CallState is the lifecycle state of a call record.
type CallState string

const (
	// CallStateRinging means the invitation was forwarded and the callee
	// has not answered yet.
	CallStateRinging CallState = "ringing"

	// CallStateConnected means the callee accepted and the answer was
	// relayed back to the caller.
	CallStateConnected CallState = "connected"

	// CallStateEnded means a connected call was hung up.
	CallStateEnded CallState = "ended"

	// CallStateRejected means the callee declined while ringing.
	CallStateRejected CallState = "rejected"

	// CallStateAbandoned means a participant disappeared or cancelled
	// before the call completed normally.
	CallStateAbandoned CallState = "abandoned"
)

// Terminal reports whether a call in this state is finished.
// Terminal records are removed from the call table.
func (s CallState) Terminal() bool {
	switch s {
	case CallStateEnded, CallStateRejected, CallStateAbandoned:
		return true
	default:
		return false
	}
}

// CallEvent is a lifecycle event applied to a call record.
type CallEvent string

const (
	CallEventAccept  CallEvent = "accept"
	CallEventReject  CallEvent = "reject"
	CallEventEnd     CallEvent = "end"
	CallEventAbandon CallEvent = "abandon"
)

// NextState applies a lifecycle event to a call state.
//
//	ringing   --accept-->        connected
//	ringing   --reject-->        rejected
//	ringing   --end|abandon-->   abandoned
//	connected --end-->           ended
//	connected --abandon-->       abandoned
//
// Every other combination returns ErrInvalidTransition. Ending a call
// that is still ringing counts as abandoning it: "ended" is reserved
// for calls that actually connected.
func NextState(state CallState, event CallEvent) (CallState, error) {
	switch state {
	case CallStateRinging:
		switch event {
		case CallEventAccept:
			return CallStateConnected, nil
		case CallEventReject:
			return CallStateRejected, nil
		case CallEventEnd, CallEventAbandon:
			return CallStateAbandoned, nil
		}
	case CallStateConnected:
		switch event {
		case CallEventEnd:
			return CallStateEnded, nil
		case CallEventAbandon:
			return CallStateAbandoned, nil
		}
	}
	return "", fmt.Errorf("%w: %s on %s call", ErrInvalidTransition, event, state)
}

// Call is a live call record. Records exist only between creation
// (ringing) and the first terminal transition; the call table never
// retains finished calls.
type Call struct {
	CallID         uuid.UUID `json:"callId"`
	CallerID       string    `json:"callerId"`
	CallerUsername string    `json:"callerUsername"`
	CalleeID       string    `json:"calleeId"`
	MediaType      MediaType `json:"callType"`
	State          CallState `json:"state"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasParticipant reports whether userID is the caller or the callee.
func (c *Call) HasParticipant(userID string) bool {
	return c.CallerID == userID || c.CalleeID == userID
}

// OtherParticipant returns the peer of userID in this call, or false
// when userID is not a participant.
func (c *Call) OtherParticipant(userID string) (string, bool) {
	switch userID {
	case c.CallerID:
		return c.CalleeID, true
	case c.CalleeID:
		return c.CallerID, true
	default:
		return "", false
	}
}
