// Package policy decides ticket visibility and mutation rights per role.
// All functions are pure predicates; callers are expected to check them
// before invoking any mutating service operation.
package policy

import "github.com/ticketdesk/ticketing/internal/domain"

// CanAccess reports whether the user may read the ticket and its comments.
// Admins see everything; support agents only tickets assigned to them; plain
// users only tickets they created.
func CanAccess(user *domain.User, ticket *domain.Ticket) bool {
	if user == nil || ticket == nil {
		return false
	}
	switch user.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleSupportAgent:
		return ticket.AssigneeID != nil && *ticket.AssigneeID == user.ID
	default:
		return ticket.CreatorID == user.ID
	}
}

// CanModify reports whether the user may mutate the ticket. The rules match
// CanAccess; the split exists so the two can diverge without touching
// callers.
func CanModify(user *domain.User, ticket *domain.Ticket) bool {
	if user == nil || ticket == nil {
		return false
	}
	switch user.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleSupportAgent:
		return ticket.AssigneeID != nil && *ticket.AssigneeID == user.ID
	default:
		return ticket.CreatorID == user.ID
	}
}
