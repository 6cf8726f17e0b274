package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"peercall-backend/internal/domain"
	"peercall-backend/pkg/constants"
	apperrors "peercall-backend/pkg/errors"
	"peercall-backend/pkg/jwt"
)

// Service handles the demo login flow. There is no account store: any
// username/password pair is accepted and every login mints a fresh user id.
// Real presence comes from the signaling socket, not from logging in.
type Service struct {
	jwtManager *jwt.JWTManager
}

// NewService creates a new auth service
func NewService(jwtManager *jwt.JWTManager) *Service {
	return &Service{jwtManager: jwtManager}
}

// LoginInput contains login credentials
type LoginInput struct {
	Username string
	Password string
}

// LoginOutput contains login result
type LoginOutput struct {
	User  domain.User
	Token string
}

// Login issues a throwaway identity for the supplied username. The password
// is not checked. The returned user is offline until it joins over the
// signaling socket.
func (s *Service) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.ValidationError("username is required")
	}
	if len(username) > constants.MaxUsernameLength {
		return nil, apperrors.ValidationError(
			fmt.Sprintf("username must be at most %d characters", constants.MaxUsernameLength))
	}

	userID := uuid.New().String()

	token, err := s.jwtManager.GenerateToken(userID, username)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to generate token", err)
	}

	return &LoginOutput{
		User: domain.User{
			ID:       userID,
			Username: username,
			IsOnline: false,
		},
		Token: token,
	}, nil
}
