package metrics

// Signaling metrics for monitoring event routing and the call lifecycle.

// Drop reasons recorded by RecordSignalDrop. Most of these are expected
// protocol races, not faults; the counter exists so a spike is visible.
const (
	DropUnknownEvent      = "unknown_event"
	DropBadPayload        = "bad_payload"
	DropNoPresence        = "no_presence"
	DropBadCallID         = "bad_call_id"
	DropBadMediaType      = "bad_media_type"
	DropUnknownCall       = "unknown_call"
	DropInvalidTransition = "invalid_transition"
	DropTargetOffline     = "target_offline"
	DropNotParticipant    = "not_participant"
	DropSelfCall          = "self_call"
	DropSendFailed        = "send_failed"
)

// RecordSignalEvent records a processed inbound signaling event
func (m *Metrics) RecordSignalEvent(event string) {
	m.signalEventsTotal.WithLabelValues(event).Inc()
}

// RecordSignalDrop records an event that was dropped or swallowed
func (m *Metrics) RecordSignalDrop(reason string) {
	m.signalDroppedTotal.WithLabelValues(reason).Inc()
}

// SetOnlineUsers sets the number of users currently online
func (m *Metrics) SetOnlineUsers(count int) {
	m.onlineUsers.Set(float64(count))
}

// RecordCall records a call entering a lifecycle state
func (m *Metrics) RecordCall(callType, status string) {
	m.callsTotal.WithLabelValues(callType, status).Inc()
}

// SetActiveCalls sets the number of live call records
func (m *Metrics) SetActiveCalls(count int) {
	m.callsActive.Set(float64(count))
}
