package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ticketdesk/ticketing/internal/domain"
	"github.com/ticketdesk/ticketing/internal/events"
	"github.com/ticketdesk/ticketing/internal/repository"
	apperrors "github.com/ticketdesk/ticketing/pkg/util"
)

// TicketService owns the ticket lifecycle: status transitions, assignment,
// rating and deletion, plus the search queries. Authorization happens in the
// request layer via the policy package before any mutating call lands here;
// the only check the engine repeats is the creator guard on rating, which the
// request layer cannot express through CanModify.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Priority    domain.TicketPriority
}

// GlobalTicketFilter is the admin search shape: every predicate optional,
// combined conjunctively.
type GlobalTicketFilter struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	AssigneeID *string
	CreatorID  *string
	Search     string
}

// ScopedTicketFilter is the non-admin search shape; results are always
// constrained to the caller's own tickets.
type ScopedTicketFilter struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	Search   string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket builds a ticket with status OPEN for the creator, persists it
// and fires a created notification. Priority defaults to MEDIUM when absent.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput, creator *domain.User) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" {
		return nil, apperrors.NewInvalidArgument("subject required", nil)
	}
	if len(subject) > domain.MaxSubjectLength {
		return nil, apperrors.NewInvalidArgument("subject too long", map[string]any{"max": domain.MaxSubjectLength})
	}
	if description == "" {
		return nil, apperrors.NewInvalidArgument("description required", nil)
	}

	ticket := &domain.Ticket{
		Subject:     subject,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		CreatorID:   creator.ID,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  creator.ID,
		Payload: events.TicketCreatedPayload{
			Subject:  ticket.Subject,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// GetTicket loads a ticket or fails with NotFound.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTicketsFor returns the listing the user's role entitles them to:
// admins see everything, support agents tickets they created or are assigned
// to, everyone else only their own.
func (s *TicketService) ListTicketsFor(ctx context.Context, user *domain.User) ([]domain.Ticket, error) {
	var filter repository.TicketFilter
	switch user.Role {
	case domain.RoleAdmin:
		// no predicates
	case domain.RoleSupportAgent:
		filter.InvolvedUserID = &user.ID
	default:
		filter.CreatorID = &user.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateStatus applies a status transition. Any status may be set to any
// other; the engine enforces only the derived effects: the first entry into
// RESOLVED stamps ResolvedAt, and a status-changed notification fires only
// when the status actually changed.
func (s *TicketService) UpdateStatus(ctx context.Context, id string, newStatus domain.TicketStatus, actor *domain.User) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	if newStatus == domain.TicketStatusResolved && ticket.ResolvedAt == nil {
		now := time.Now()
		ticket.ResolvedAt = &now
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if oldStatus != newStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: newStatus,
			},
		})
	}
	return ticket, nil
}

// AssignTicket sets the assignee and applies the OPEN to IN_PROGRESS
// auto-advance. The caller has already validated that a non-nil assignee is a
// support agent or admin. A nil assignee unassigns the ticket without
// auto-advance or notification.
func (s *TicketService) AssignTicket(ctx context.Context, id string, assignee *domain.User, actor *domain.User) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	oldAssignee := ticket.AssigneeID
	if assignee == nil {
		ticket.AssigneeID = nil
	} else {
		ticket.AssigneeID = &assignee.ID
		if ticket.Status == domain.TicketStatusOpen {
			ticket.Status = domain.TicketStatusInProgress
		}
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if assignee != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Payload: events.TicketAssignedPayload{
				OldAssigneeID: oldAssignee,
				NewAssigneeID: assignee.ID,
			},
		})
	}
	return ticket, nil
}

// RateTicket records the creator's satisfaction rating. Only the creator may
// rate, only once the ticket is RESOLVED or CLOSED, and only with a rating
// inside [1,5]. A failed guard leaves the stored ticket untouched. Rating
// fires no notification.
func (s *TicketService) RateTicket(ctx context.Context, id string, rating int, feedback string, user *domain.User) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.CreatorID != user.ID {
		return nil, apperrors.NewForbidden("only the ticket creator can rate the ticket")
	}
	if ticket.Status != domain.TicketStatusResolved && ticket.Status != domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidState("can only rate resolved or closed tickets", map[string]any{"status": ticket.Status})
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewInvalidArgument("rating must be between 1 and 5", map[string]any{"rating": rating})
	}

	ticket.Rating = &rating
	ticket.Feedback = &feedback
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// DeleteTicket removes the ticket; comments and attachments cascade with it.
// Authorization is the caller's responsibility (admin routes in practice).
func (s *TicketService) DeleteTicket(ctx context.Context, id string) error {
	if err := s.tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// SearchTickets runs the admin-wide filter query.
func (s *TicketService) SearchTickets(ctx context.Context, filter GlobalTicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Status:     filter.Status,
		Priority:   filter.Priority,
		AssigneeID: filter.AssigneeID,
		CreatorID:  filter.CreatorID,
		Search:     filter.Search,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// SearchUserTickets runs the scoped filter query, always constrained to
// tickets the user created.
func (s *TicketService) SearchUserTickets(ctx context.Context, user *domain.User, filter ScopedTicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Status:    filter.Status,
		Priority:  filter.Priority,
		CreatorID: &user.ID,
		Search:    filter.Search,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
