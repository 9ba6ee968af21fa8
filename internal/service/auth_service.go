package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AuthService coordinates login and logout flows.
type AuthService struct {
	users    repository.UserRepository
	tokenMgr *auth.TokenManager
	revoked  auth.RevocationStore
	logger   *zap.Logger
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	Store       repository.Store
	Tokens      *auth.TokenManager
	Revocations auth.RevocationStore
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    deps.Store.Repos().Users,
		tokenMgr: deps.Tokens,
		revoked:  deps.Revocations,
		logger:   logger,
	}
}

// Login authenticates a user by username and password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, auth.IssuedToken, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, auth.IssuedToken{}, errorutil.NewValidationError("username and password are required", nil)
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.IssuedToken{}, errorutil.NewUnauthorized("invalid credentials")
		}
		return nil, auth.IssuedToken{}, errorutil.NewStoreUnavailable(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login rejected", zap.String("username", username))
		return nil, auth.IssuedToken{}, errorutil.NewUnauthorized("invalid credentials")
	}
	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, auth.IssuedToken{}, errorutil.NewInternalError(err)
	}
	s.logger.Info("login succeeded", zap.Int64("user_id", user.ID))
	return user, token, nil
}

// Logout revokes the session token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, principal *auth.Principal) error {
	if principal == nil || principal.TokenID == "" {
		return errorutil.NewUnauthorized("authentication required")
	}
	if s.revoked == nil {
		return nil
	}
	if err := s.revoked.Revoke(ctx, principal.TokenID, principal.ExpiresAt); err != nil {
		return errorutil.NewStoreUnavailable(err)
	}
	s.logger.Info("logout", zap.Int64("user_id", principal.Actor.ID()))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
