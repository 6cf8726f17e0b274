// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// WebSocket constants
const (
	// WebSocketPongWait is how long a connection may stay silent before
	// the read side gives up on it
	WebSocketPongWait = 60 * time.Second

	// WebSocketPingInterval is the interval between pings; it must be
	// shorter than WebSocketPongWait
	WebSocketPingInterval = 54 * time.Second

	// WebSocketWriteTimeout bounds a single frame write
	WebSocketWriteTimeout = 10 * time.Second

	// WebSocketSendBufferSize is the per-client outbound queue length
	WebSocketSendBufferSize = 256

	// WebSocketMaxMessageSize caps inbound frames; session descriptions
	// are the largest payloads and stay well under this
	WebSocketMaxMessageSize = 64 * 1024

	// DefaultMaxConnections is the default cap on concurrent WebSocket connections
	DefaultMaxConnections = 1000
)

// JWT-related constants
const (
	// AccessTokenExpiry is the default access token lifetime
	AccessTokenExpiry = 24 * time.Hour
)

// Validation constants
const (
	// MinUsernameLength is the minimum allowed username length
	MinUsernameLength = 1

	// MaxUsernameLength is the maximum allowed username length
	MaxUsernameLength = 50
)
