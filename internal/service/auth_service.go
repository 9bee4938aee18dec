package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/billing"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	revoker       auth.Revoker
	users         storage.UserStore
	ledger        *billing.Service
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service. revoker may be nil,
// in which case Logout only tells the client to drop its token.
func NewAuthService(
	authenticator auth.Authenticator,
	jwtManager *auth.JWTManager,
	revoker auth.Revoker,
	users storage.UserStore,
	ledger *billing.Service,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		revoker:       revoker,
		users:         users,
		ledger:        ledger,
		logger:        logger,
	}
}

// Register creates a new user account and mirrors it as a participant.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	// Validate input
	if strings.TrimSpace(req.Msg.Email) == "" || strings.TrimSpace(req.Msg.DisplayName) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Register(ctx, req.Msg.Email, req.Msg.DisplayName, req.Msg.Password)
	if err != nil {
		s.logger.Error("Registration failed", "email", req.Msg.Email, "error", err)
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(resp), nil
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error) {
	s.logger.Info("Login request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Msg.Email, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(resp), nil
}

// issue makes sure the user exists as a participant and signs a token for them.
func (s *AuthService) issue(ctx context.Context, user *models.User) (*AuthResponse, error) {
	if _, err := s.ledger.EnsureParticipant(ctx, user.ID, user.DisplayName); err != nil {
		s.logger.Error("Failed to mirror user as participant", "user_id", user.ID, "error", err)
		return nil, toConnectError(err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	claims, err := s.jwtManager.Validate(token)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return &AuthResponse{
		User:      toUser(user),
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the token the request was made with.
func (s *AuthService) Logout(ctx context.Context, req *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	tokenID, expiresAt := middleware.GetToken(ctx)
	if s.revoker != nil && tokenID != "" {
		if err := s.revoker.Revoke(ctx, tokenID, expiresAt); err != nil {
			s.logger.Error("Failed to revoke token", "user_id", userID, "error", err)
			return nil, connect.NewError(connect.CodeUnavailable, err)
		}
	}

	s.logger.Info("Logout request", "user_id", userID)
	return connect.NewResponse(&LogoutResponse{}), nil
}

// GetCurrentUser returns the currently authenticated user's information.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	s.logger.Info("GetCurrentUser request", "user_id", userID)

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&GetCurrentUserResponse{User: toUser(user)}), nil
}
