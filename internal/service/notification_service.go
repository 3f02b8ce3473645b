package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ticketdesk/ticketing/internal/events"
	"github.com/ticketdesk/ticketing/internal/notify"
	"github.com/ticketdesk/ticketing/internal/repository"
)

// NotificationService bridges domain events to the notification port. Every
// handler is best-effort: lookup or delivery failures are logged and
// swallowed so a notification problem can never fail the mutation that
// triggered it.
type NotificationService struct {
	dispatcher events.Dispatcher
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	notifier   notify.Notifier
	logger     *zap.Logger
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Dispatcher  events.Dispatcher
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	Notifier    notify.Notifier
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		notifier:   deps.Notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to the lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.handleCommentAdded)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID))
	ticket, err := n.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		n.logger.Warn("notification: load ticket", zap.String("ticket_id", event.TicketID), zap.Error(err))
		return nil
	}
	creator, err := n.users.GetByID(ctx, ticket.CreatorID)
	if err != nil {
		n.logger.Warn("notification: load creator", zap.String("user_id", ticket.CreatorID), zap.Error(err))
		return nil
	}
	if err := n.notifier.TicketCreated(ctx, ticket, creator); err != nil {
		n.logger.Warn("notification: ticket created delivery failed", zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)))
	ticket, err := n.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		n.logger.Warn("notification: load ticket", zap.String("ticket_id", event.TicketID), zap.Error(err))
		return nil
	}
	creator, err := n.users.GetByID(ctx, ticket.CreatorID)
	if err != nil {
		n.logger.Warn("notification: load creator", zap.String("user_id", ticket.CreatorID), zap.Error(err))
		return nil
	}
	if err := n.notifier.TicketStatusChanged(ctx, ticket, creator, payload.OldStatus, payload.NewStatus); err != nil {
		n.logger.Warn("notification: status change delivery failed", zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketAssigned",
		zap.String("ticket_id", event.TicketID),
		zap.String("assignee_id", payload.NewAssigneeID))
	ticket, err := n.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		n.logger.Warn("notification: load ticket", zap.String("ticket_id", event.TicketID), zap.Error(err))
		return nil
	}
	assignee, err := n.users.GetByID(ctx, payload.NewAssigneeID)
	if err != nil {
		n.logger.Warn("notification: load assignee", zap.String("user_id", payload.NewAssigneeID), zap.Error(err))
		return nil
	}
	if err := n.notifier.TicketAssigned(ctx, ticket, assignee); err != nil {
		n.logger.Warn("notification: assignment delivery failed", zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentAddedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketCommentAdded",
		zap.String("ticket_id", event.TicketID),
		zap.String("comment_id", payload.CommentID))
	ticket, err := n.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		n.logger.Warn("notification: load ticket", zap.String("ticket_id", event.TicketID), zap.Error(err))
		return nil
	}
	comment, err := n.comments.GetByID(ctx, payload.CommentID)
	if err != nil {
		n.logger.Warn("notification: load comment", zap.String("comment_id", payload.CommentID), zap.Error(err))
		return nil
	}
	author, err := n.users.GetByID(ctx, payload.AuthorID)
	if err != nil {
		n.logger.Warn("notification: load author", zap.String("user_id", payload.AuthorID), zap.Error(err))
		return nil
	}
	recipient, err := n.users.GetByID(ctx, ticket.CreatorID)
	if err != nil {
		n.logger.Warn("notification: load recipient", zap.String("user_id", ticket.CreatorID), zap.Error(err))
		return nil
	}
	if err := n.notifier.CommentAdded(ctx, ticket, comment, author, recipient); err != nil {
		n.logger.Warn("notification: comment delivery failed", zap.Error(err))
	}
	return nil
}
