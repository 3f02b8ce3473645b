package repository

import (
	"strings"

	"github.com/ticketdesk/ticketing/internal/domain"
)

// TicketFilter captures search parameters. Nil/empty fields are treated as
// always-true; set fields are combined conjunctively. The same contract
// backs the SQL query builder and the in-memory Matches predicate.
type TicketFilter struct {
	Status         *domain.TicketStatus
	Priority       *domain.TicketPriority
	AssigneeID     *string
	CreatorID      *string
	InvolvedUserID *string // matches creator OR assignee
	Search         string  // case-insensitive substring over subject/description
}

// Matches reports whether the ticket satisfies every set predicate. An empty
// search string matches everything.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if t == nil {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.AssigneeID != nil {
		if t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID {
			return false
		}
	}
	if f.CreatorID != nil && t.CreatorID != *f.CreatorID {
		return false
	}
	if f.InvolvedUserID != nil {
		involved := t.CreatorID == *f.InvolvedUserID ||
			(t.AssigneeID != nil && *t.AssigneeID == *f.InvolvedUserID)
		if !involved {
			return false
		}
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		subject := strings.ToLower(t.Subject)
		description := strings.ToLower(t.Description)
		if !strings.Contains(subject, search) && !strings.Contains(description, search) {
			return false
		}
	}
	return true
}
