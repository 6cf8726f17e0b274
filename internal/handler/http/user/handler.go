package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"peercall-backend/internal/domain"
	"peercall-backend/pkg/response"
)

// OnlineDirectory lists the users currently connected to the signaling hub.
type OnlineDirectory interface {
	OnlineUsers() []domain.User
}

// Handler handles user directory HTTP requests
type Handler struct {
	directory OnlineDirectory
}

// NewHandler creates a new user handler
func NewHandler(directory OnlineDirectory) *Handler {
	return &Handler{
		directory: directory,
	}
}

// ListOnline returns every user with a live signaling connection
// GET /v1/users
func (h *Handler) ListOnline(c *gin.Context) {
	users := h.directory.OnlineUsers()

	response.Success(c, http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// GetProfile returns the identity carried by the caller's token
// GET /v1/users/me
func (h *Handler) GetProfile(c *gin.Context) {
	// Set by auth middleware
	userIDVal, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "Not authenticated")
		return
	}
	userID, ok := userIDVal.(string)
	if !ok {
		response.InternalError(c, "Invalid user ID")
		return
	}

	username := c.GetString("username")

	online := false
	for _, u := range h.directory.OnlineUsers() {
		if u.ID == userID {
			online = true
			break
		}
	}

	response.Success(c, http.StatusOK, domain.User{
		ID:       userID,
		Username: username,
		IsOnline: online,
	})
}
