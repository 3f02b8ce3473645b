package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ticketdesk/ticketing/internal/auth"
	"github.com/ticketdesk/ticketing/internal/domain"
	"github.com/ticketdesk/ticketing/internal/repository"
)

type seedAccount struct {
	username  string
	email     string
	firstName string
	lastName  string
	role      domain.Role
}

var defaultAccounts = []seedAccount{
	{"admin", "admin@ticketdesk.com", "Admin", "User", domain.RoleAdmin},
	{"support", "support@ticketdesk.com", "Support", "Agent", domain.RoleSupportAgent},
	{"user", "user@ticketdesk.com", "Demo", "User", domain.RoleUser},
}

const seedPassword = "password123"

// SeedDefaultAccounts creates the default admin/support/user accounts when
// they do not exist yet. Meant for development environments; gated behind a
// config flag.
func SeedDefaultAccounts(ctx context.Context, users repository.UserRepository, bcryptCost int, logger *zap.Logger) error {
	for _, account := range defaultAccounts {
		exists, err := users.ExistsByUsername(ctx, account.username)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		hash, err := auth.HashPassword(seedPassword, bcryptCost)
		if err != nil {
			return err
		}
		user := &domain.User{
			Username:     account.username,
			Email:        account.email,
			PasswordHash: hash,
			FirstName:    account.firstName,
			LastName:     account.lastName,
			Role:         account.role,
		}
		if err := users.Create(ctx, user); err != nil {
			return err
		}
		logger.Info("seeded default account",
			zap.String("username", account.username),
			zap.String("role", string(account.role)))
	}
	return nil
}
