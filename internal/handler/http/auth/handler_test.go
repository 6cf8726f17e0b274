package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authservice "peercall-backend/internal/service/auth"
	"peercall-backend/pkg/jwt"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	service := authservice.NewService(jwt.NewJWTManager("test-secret", time.Hour))
	handler := NewHandler(service)

	router := gin.New()
	router.POST("/v1/auth/login", handler.Login)
	return router
}

func postLogin(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLogin_Success(t *testing.T) {
	// Setup
	router := newTestRouter()

	// Execute
	rec := postLogin(t, router, `{"username":"alice","password":"whatever"}`)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)

	var parsed struct {
		Success bool `json:"success"`
		Data    struct {
			User struct {
				ID       string `json:"id"`
				Username string `json:"username"`
				IsOnline bool   `json:"isOnline"`
			} `json:"user"`
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.True(t, parsed.Success)
	assert.Equal(t, "alice", parsed.Data.User.Username)
	assert.False(t, parsed.Data.User.IsOnline)
	assert.NotEmpty(t, parsed.Data.User.ID)
	assert.NotEmpty(t, parsed.Data.Token)
}

func TestLogin_PasswordOptional(t *testing.T) {
	// Setup
	router := newTestRouter()

	// Execute
	rec := postLogin(t, router, `{"username":"bob"}`)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"bob"`)
}

func TestLogin_MissingUsername(t *testing.T) {
	// Setup
	router := newTestRouter()

	// Execute
	rec := postLogin(t, router, `{"password":"whatever"}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestLogin_BlankUsername(t *testing.T) {
	// Setup
	router := newTestRouter()

	// Execute
	rec := postLogin(t, router, `{"username":"   "}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestLogin_MalformedBody(t *testing.T) {
	// Setup
	router := newTestRouter()

	// Execute
	rec := postLogin(t, router, `{"username":`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}
