package domain

import "time"

// User is the client-facing user representation returned by the HTTP API.
// User IDs are opaque strings: the signaling core keys everything by the id
// a client announces on join, it never mints or validates identities itself.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsOnline bool   `json:"isOnline"`
}

// PresenceEntry records a live signaling connection for a user.
// The registry holds at most one entry per user id; a reconnect
// replaces the previous entry (last writer wins).
type PresenceEntry struct {
	UserID       string
	Username     string
	ConnectionID string
	OnlineSince  time.Time
}

// OnlineUser is the wire form of a presence entry, used in the
// online-user snapshots carried by join_success and users_updated.
type OnlineUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ToOnlineUser converts a presence entry to its wire form.
func (e *PresenceEntry) ToOnlineUser() OnlineUser {
	return OnlineUser{
		ID:       e.UserID,
		Username: e.Username,
	}
}

// ToUser converts a presence entry to the HTTP user representation.
func (e *PresenceEntry) ToUser() User {
	return User{
		ID:       e.UserID,
		Username: e.Username,
		IsOnline: true,
	}
}
