package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peercall-backend/internal/domain"
	"peercall-backend/internal/repository/memory"
	"peercall-backend/internal/service/signaling"
	"peercall-backend/pkg/metrics"
)

// recordingDispatcher captures what the transport hands to the
// coordinator, so transport behavior can be tested without one.
type recordingDispatcher struct {
	mu          sync.Mutex
	events      []domain.ClientEvent
	disconnects []string
}

func (d *recordingDispatcher) Dispatch(connectionID string, evt domain.ClientEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}

func (d *recordingDispatcher) HandleDisconnect(connectionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disconnects = append(d.disconnects, connectionID)
}

func (d *recordingDispatcher) eventCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

func (d *recordingDispatcher) lastEvent() domain.ClientEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events[len(d.events)-1]
}

func (d *recordingDispatcher) disconnectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.disconnects)
}

func newTestServer(t *testing.T, dispatcher Dispatcher, maxConns int) (*httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(metrics.NewMetrics("ws-test"))
	handler := NewHandler(hub, dispatcher, []string{"*"}, maxConns)

	router := gin.New()
	router.GET("/ws", handler.ServeWS)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, hub
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// awaitEvent reads frames until one with the wanted event arrives.
func awaitEvent(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", event)

		var evt struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(frame, &evt))
		if evt.Event == event {
			return evt.Data
		}
	}
}

func TestServeWS_DispatchesInboundFrames(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	srv, hub := newTestServer(t, dispatcher, 10)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"join","data":{"id":"alice","username":"Alice"}}`)))

	assert.Eventually(t, func() bool { return dispatcher.eventCount() == 1 },
		time.Second, 10*time.Millisecond)
	evt := dispatcher.lastEvent()
	assert.Equal(t, domain.EventJoin, evt.Event)
	assert.JSONEq(t, `{"id":"alice","username":"Alice"}`, string(evt.Data))
	assert.Equal(t, 1, hub.Count())
}

func TestServeWS_InvalidFrameSkipped(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	srv, _ := newTestServer(t, dispatcher, 10)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"join","data":{"id":"alice","username":"Alice"}}`)))

	// Only the valid frame reaches the dispatcher, on a connection
	// that survived the garbage.
	assert.Eventually(t, func() bool { return dispatcher.eventCount() == 1 },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, domain.EventJoin, dispatcher.lastEvent().Event)
}

func TestServeWS_DisconnectNotifiedOnce(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	srv, hub := newTestServer(t, dispatcher, 10)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"join","data":{"id":"alice","username":"Alice"}}`)))
	require.Eventually(t, func() bool { return dispatcher.eventCount() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool { return dispatcher.disconnectCount() == 1 },
		time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, dispatcher.disconnectCount())
	assert.Equal(t, 0, hub.Count())
}

func TestServeWS_AtCapacity(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	srv, _ := newTestServer(t, dispatcher, 1)

	first := dial(t, srv)

	// The second dial is refused before the upgrade
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// Closing the first connection frees its slot
	first.Close()
	require.Eventually(t, func() bool { return dispatcher.disconnectCount() == 1 },
		time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, time.Second, 20*time.Millisecond)
}

func TestHub_SendToUnknownConnection(t *testing.T) {
	hub := NewHub(metrics.NewMetrics("hub-test"))

	err := hub.Send("ghost", domain.ServerEvent{Event: domain.EventCallEnded})

	assert.ErrorIs(t, err, domain.ErrConnGone)
}

// TestServeWS_SignalingRoundTrip runs the full loop with the real
// coordinator: two sockets join, then one relays a candidate to the
// other through the hub.
func TestServeWS_SignalingRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := metrics.NewMetrics("ws-roundtrip-test")
	hub := NewHub(m)
	presence := memory.NewPresenceRepository()
	calls := memory.NewCallRepository(presence)
	svc := signaling.NewService(presence, calls, hub, m)
	handler := NewHandler(hub, svc, []string{"*"}, 10)

	router := gin.New()
	router.GET("/ws", handler.ServeWS)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	alice := dial(t, srv)
	require.NoError(t, alice.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"join","data":{"id":"alice","username":"Alice"}}`)))

	// join_success carries the snapshot, camelCase on the wire
	data := awaitEvent(t, alice, "join_success")
	var success struct {
		Message     string `json:"message"`
		OnlineUsers []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"onlineUsers"`
	}
	require.NoError(t, json.Unmarshal(data, &success))
	require.Len(t, success.OnlineUsers, 1)
	assert.Equal(t, "alice", success.OnlineUsers[0].ID)

	bob := dial(t, srv)
	require.NoError(t, bob.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"join","data":{"id":"bob","username":"Bob"}}`)))
	awaitEvent(t, bob, "join_success")

	// alice learns about bob through a presence broadcast; her own
	// join may have queued an earlier one, so read until both appear
	var ids []string
	for len(ids) != 2 {
		updated := awaitEvent(t, alice, "users_updated")
		var users struct {
			OnlineUsers []struct {
				ID string `json:"id"`
			} `json:"onlineUsers"`
		}
		require.NoError(t, json.Unmarshal(updated, &users))
		ids = ids[:0]
		for _, u := range users.OnlineUsers {
			ids = append(ids, u.ID)
		}
	}
	assert.Equal(t, []string{"alice", "bob"}, ids)

	// alice relays a candidate addressed to bob's user id
	require.NoError(t, alice.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"ice_candidate","data":{"to":"bob","candidate":{"candidate":"candidate:1 1 udp 2130706431 10.0.0.1 54321 typ host","sdpMid":"0"}}}`)))

	forwarded := awaitEvent(t, bob, "ice_candidate")
	var fwd struct {
		From      string `json:"from"`
		Candidate struct {
			Candidate string `json:"candidate"`
		} `json:"candidate"`
	}
	require.NoError(t, json.Unmarshal(forwarded, &fwd))
	assert.Equal(t, "alice", fwd.From)
	assert.Contains(t, fwd.Candidate.Candidate, "candidate:1")
}
