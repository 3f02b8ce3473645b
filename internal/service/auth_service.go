package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ticketdesk/ticketing/internal/auth"
	"github.com/ticketdesk/ticketing/internal/config"
	"github.com/ticketdesk/ticketing/internal/domain"
	"github.com/ticketdesk/ticketing/internal/repository"
	apperrors "github.com/ticketdesk/ticketing/pkg/util"
)

// AuthService coordinates signup and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// SignupInput describes a registration payload.
type SignupInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Signup registers a new end-user account with the USER role. Username and
// email must both be globally unique.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*domain.User, string, time.Time, error) {
	user, err := s.createAccount(ctx, input, domain.RoleUser)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// CreateAccount registers an account with an explicit role; admin-only in
// practice, routed through the admin user management endpoints.
func (s *AuthService) CreateAccount(ctx context.Context, input SignupInput, role domain.Role) (*domain.User, error) {
	return s.createAccount(ctx, input, role)
}

func (s *AuthService) createAccount(ctx context.Context, input SignupInput, role domain.Role) (*domain.User, error) {
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, apperrors.NewInvalidArgument("username, email and password required", nil)
	}
	taken, err := s.users.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if taken {
		return nil, apperrors.NewConflict("username is already taken", map[string]any{"username": input.Username})
	}
	inUse, err := s.users.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if inUse {
		return nil, apperrors.NewConflict("email is already in use", map[string]any{"email": input.Email})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Login authenticates by username and password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}
