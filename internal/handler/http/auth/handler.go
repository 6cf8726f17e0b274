package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"peercall-backend/internal/service/auth"
	apperrors "peercall-backend/pkg/errors"
	"peercall-backend/pkg/response"
)

// Handler handles HTTP requests for authentication
type Handler struct {
	authService *auth.Service
}

// NewHandler creates a new auth handler
func NewHandler(authService *auth.Service) *Handler {
	return &Handler{
		authService: authService,
	}
}

// LoginRequest represents login request body. The password is optional
// because the demo flow accepts any credentials.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
}

// Login handles user login
// POST /v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	// Call service
	output, err := h.authService.Login(c.Request.Context(), &auth.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})

	if err != nil {
		appErr := apperrors.GetAppError(err)
		response.Error(c, appErr.StatusCode, string(appErr.Code), appErr.Message)
		return
	}

	// Return response
	response.Success(c, http.StatusOK, gin.H{
		"user":  output.User,
		"token": output.Token,
	})
}
