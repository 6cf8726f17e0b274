package domain

import "errors"

// Signaling errors. None of these are fatal: the coordinator maps
// ErrTargetOffline to a user_offline status for the caller and swallows
// the rest, because they are the expected outcome of two clients racing
// against the same call record.
var (
	// ErrTargetOffline means the requested peer has no presence entry.
	ErrTargetOffline = errors.New("target user is not online")

	// ErrUnknownCall means no record exists for the call id, usually
	// because the other side already drove the call to a terminal state.
	ErrUnknownCall = errors.New("unknown call")

	// ErrInvalidTransition means the requested lifecycle event is not
	// legal for the call's current state.
	ErrInvalidTransition = errors.New("invalid call state transition")

	// ErrConnGone means the destination connection is no longer
	// registered with the gateway.
	ErrConnGone = errors.New("connection is gone")
)
