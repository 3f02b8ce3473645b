package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketdesk/ticketing/internal/domain"
	apperrors "github.com/ticketdesk/ticketing/pkg/util"
)

// RequireRole ensures the authenticated user holds one of the allowed roles.
// With no roles given, any authenticated user passes.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[user.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAdmin guards admin-only routes.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}

// RequireStaff guards routes restricted to support agents and admins.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.RoleAdmin, domain.RoleSupportAgent)
}
