package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"peercall-backend/internal/domain"
	"peercall-backend/pkg/constants"
	"peercall-backend/pkg/logger"
)

// Client is one WebSocket connection. The read pump feeds inbound
// frames to the dispatcher; the write pump drains the send channel
// and keeps the connection alive with pings.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	connID     string
	dispatcher Dispatcher
	release    func()
	closeOnce  sync.Once
}

// enqueue hands a marshaled frame to the write pump without blocking.
// Callers hold the hub's read lock, which excludes the channel close
// in Hub.remove.
func (c *Client) enqueue(payload []byte, event string) {
	select {
	case c.send <- payload:
		c.hub.metrics.RecordWebSocketMessage(event, "outbound")
	default:
		// The write pump is wedged and the buffer is full. Drop the
		// frame; the ping cycle will reap the connection if it stays
		// stuck.
		c.hub.metrics.RecordWebSocketError("send_buffer_full")
		logger.Warn("dropping frame for slow client",
			zap.String("connection_id", c.connID),
			zap.String("event", event))
	}
}

// teardown runs the connection's cleanup exactly once, whichever pump
// dies first: leave the hub, tell the coordinator, close the socket,
// give the capacity slot back.
func (c *Client) teardown() {
	c.closeOnce.Do(func() {
		c.hub.remove(c)
		c.dispatcher.HandleDisconnect(c.connID)
		c.conn.Close()
		c.release()
		logger.Info("websocket disconnected",
			zap.String("connection_id", c.connID))
	})
}

// readPump reads frames from the WebSocket and dispatches them
func (c *Client) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(constants.WebSocketMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Debug("websocket read failed",
					zap.String("connection_id", c.connID),
					zap.Error(err))
			}
			break
		}

		var evt domain.ClientEvent
		if err := json.Unmarshal(message, &evt); err != nil {
			c.hub.metrics.RecordWebSocketError("bad_frame")
			logger.Warn("invalid frame from client",
				zap.String("connection_id", c.connID),
				zap.Error(err))
			continue
		}

		c.hub.metrics.RecordWebSocketMessage(evt.Event, "inbound")
		c.dispatcher.Dispatch(c.connID, evt)
	}
}

// writePump writes queued frames to the WebSocket and pings on a ticker
func (c *Client) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
