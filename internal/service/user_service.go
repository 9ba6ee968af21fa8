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

// UserCreateInput describes a new account.
type UserCreateInput struct {
	Username string
	Password string
	Name     string
	Email    string
	Role     domain.Role
}

// demoUsers are the accounts seeded for demos and local development.
var demoUsers = []UserCreateInput{
	{Username: "admin", Password: "admin123", Name: "Admin User", Email: "admin@supportdesk.com", Role: domain.RoleAdmin},
	{Username: "agent", Password: "agent123", Name: "Ana Martínez", Email: "ana@supportdesk.com", Role: domain.RoleAgent},
	{Username: "user", Password: "user123", Name: "Carlos Gómez", Email: "carlos@example.com", Role: domain.RoleUser},
}

// UserService manages account records.
type UserService struct {
	store      repository.Store
	logger     *zap.Logger
	bcryptCost int
}

// NewUserService constructs the service.
func NewUserService(store repository.Store, logger *zap.Logger, bcryptCost int) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{store: store, logger: logger, bcryptCost: bcryptCost}
}

// Create registers an account. Only admins may call it.
func (s *UserService) Create(ctx context.Context, actor domain.Actor, input UserCreateInput) (*domain.User, error) {
	if !auth.CanManageUsers(actor) {
		return nil, errorutil.NewForbidden("only admins can create users")
	}
	return s.create(ctx, input)
}

func (s *UserService) create(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if input.Username == "" || input.Password == "" || input.Name == "" {
		return nil, errorutil.NewValidationError("username, password and name are required", nil)
	}
	if !input.Role.Valid() {
		return nil, errorutil.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	user := &domain.User{
		Username:     input.Username,
		PasswordHash: hash,
		Name:         input.Name,
		Email:        input.Email,
		Role:         input.Role,
	}
	if err := s.store.Repos().Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errorutil.NewConflict("username already taken", map[string]any{"username": input.Username})
		}
		return nil, errorutil.NewStoreUnavailable(err)
	}
	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.store.Repos().Users.GetByID(ctx, id)
	if err != nil {
		return nil, readError(err, "user", id)
	}
	return user, nil
}

// List returns users, optionally restricted to a role.
func (s *UserService) List(ctx context.Context, role *domain.Role) ([]domain.User, error) {
	users, err := s.store.Repos().Users.List(ctx, repository.UserFilter{Role: role})
	if err != nil {
		return nil, errorutil.NewStoreUnavailable(err)
	}
	return users, nil
}

// SeedDefaults creates the demo accounts that do not exist yet and reports how many were added.
func (s *UserService) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, input := range demoUsers {
		_, err := s.store.Repos().Users.GetByUsername(ctx, input.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return created, errorutil.NewStoreUnavailable(err)
		}
		if _, err := s.create(ctx, input); err != nil {
			if errorutil.HasCode(err, errorutil.CodeConflict) {
				continue
			}
			return created, err
		}
		created++
	}
	if created > 0 {
		s.logger.Info("demo users seeded", zap.Int("created", created))
	}
	return created, nil
}
