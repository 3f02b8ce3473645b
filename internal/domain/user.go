package domain

import "time"

// Role enumerates what a user may see and change.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleSupportAgent Role = "SUPPORT_AGENT"
	RoleUser         Role = "USER"
)

// ParseRole validates a role token.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleAdmin, RoleSupportAgent, RoleUser:
		return Role(raw), true
	}
	return "", false
}

// CanBeAssignee reports whether tickets may be assigned to this role.
func (r Role) CanBeAssignee() bool {
	return r == RoleSupportAgent || r == RoleAdmin
}

// User is the domain model for everyone who touches tickets: requesters,
// support agents and administrators. Username and email are globally unique.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins the profile name fields for display.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
