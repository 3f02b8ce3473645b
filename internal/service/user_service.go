package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ticketdesk/ticketing/internal/domain"
	"github.com/ticketdesk/ticketing/internal/repository"
	apperrors "github.com/ticketdesk/ticketing/pkg/util"
)

// UserService handles user lookups and the admin-facing user management
// operations. Role changes go through UpdateUser and are admin-routed.
type UserService struct {
	users repository.UserRepository
}

// UserUpdateInput carries the mutable profile fields; nil means unchanged.
type UserUpdateInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *domain.Role
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// GetUser loads a user or fails with NotFound.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ListUsers returns every account.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ListSupportAgents returns accounts holding the SUPPORT_AGENT role.
func (s *UserService) ListSupportAgents(ctx context.Context) ([]domain.User, error) {
	agents, err := s.users.ListByRole(ctx, domain.RoleSupportAgent)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agents, nil
}

// UpdateUser applies profile changes to an existing account.
func (s *UserService) UpdateUser(ctx context.Context, id string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Email != nil && *input.Email != user.Email {
		inUse, err := s.users.ExistsByEmail(ctx, *input.Email)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if inUse {
			return nil, apperrors.NewConflict("email is already in use", map[string]any{"email": *input.Email})
		}
		user.Email = *input.Email
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// DeleteUser removes an account.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}
