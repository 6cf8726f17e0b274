package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"peercall-backend/internal/domain"
	"peercall-backend/pkg/constants"
	"peercall-backend/pkg/logger"
)

// Dispatcher consumes inbound events and connection lifecycle changes
type Dispatcher interface {
	Dispatch(connectionID string, evt domain.ClientEvent)
	HandleDisconnect(connectionID string)
}

// Handler upgrades HTTP requests to WebSocket connections and starts
// their pumps. A semaphore caps concurrent connections; the slot is
// held until the connection tears down.
type Handler struct {
	hub            *Hub
	dispatcher     Dispatcher
	upgrader       websocket.Upgrader
	semaphore      chan struct{}
	maxConnections int
}

// NewHandler creates a WebSocket handler
func NewHandler(hub *Hub, dispatcher Dispatcher, allowedOrigins []string, maxConnections int) *Handler {
	if maxConnections <= 0 {
		maxConnections = constants.DefaultMaxConnections
	}

	return &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		semaphore:      make(chan struct{}, maxConnections),
		maxConnections: maxConnections,
	}
}

// originChecker allows the configured origins. Requests without an
// Origin header are not browsers and pass; "*" allows everything.
func originChecker(allowedOrigins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	wildcard := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			wildcard = true
		}
		allowed[origin] = true
	}

	return func(r *http.Request) bool {
		if wildcard {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return allowed[origin]
	}
}

// ServeWS handles WebSocket upgrade requests
func (h *Handler) ServeWS(c *gin.Context) {
	// Acquire a connection slot; it is released in Client.teardown,
	// not when this handler returns.
	select {
	case h.semaphore <- struct{}{}:
	default:
		logger.Warn("websocket connection rejected: max connections reached",
			zap.Int("max_connections", h.maxConnections))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server at capacity, please try again later"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		<-h.semaphore
		logger.Warn("websocket upgrade failed",
			zap.String("remote_addr", c.Request.RemoteAddr),
			zap.Error(err))
		return
	}

	client := &Client{
		hub:        h.hub,
		conn:       conn,
		send:       make(chan []byte, constants.WebSocketSendBufferSize),
		connID:     uuid.New().String(),
		dispatcher: h.dispatcher,
		release:    func() { <-h.semaphore },
	}

	h.hub.add(client)
	logger.Info("websocket connected",
		zap.String("connection_id", client.connID),
		zap.String("remote_addr", c.Request.RemoteAddr))

	go client.writePump()
	go client.readPump()
}
