// Package notify is the outbound port for user-facing alerts. Implementations
// are best-effort: the lifecycle engine never waits on them for correctness
// and their failures are logged, not propagated.
package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ticketdesk/ticketing/internal/config"
	"github.com/ticketdesk/ticketing/internal/domain"
)

// Notifier receives ticket lifecycle alerts.
type Notifier interface {
	TicketCreated(ctx context.Context, ticket *domain.Ticket, creator *domain.User) error
	TicketStatusChanged(ctx context.Context, ticket *domain.Ticket, creator *domain.User, oldStatus, newStatus domain.TicketStatus) error
	TicketAssigned(ctx context.Context, ticket *domain.Ticket, assignee *domain.User) error
	CommentAdded(ctx context.Context, ticket *domain.Ticket, comment *domain.Comment, author, recipient *domain.User) error
}

// EmailNotifier renders plain-text mails and hands them to an outbound stub.
// When no sender address is configured it degrades to logging only.
type EmailNotifier struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewEmailNotifier builds the notifier.
func NewEmailNotifier(logger *zap.Logger, cfg config.NotificationConfig) *EmailNotifier {
	return &EmailNotifier{logger: logger, cfg: cfg}
}

// TicketCreated mails the creator a confirmation.
func (n *EmailNotifier) TicketCreated(ctx context.Context, ticket *domain.Ticket, creator *domain.User) error {
	body := fmt.Sprintf("Your ticket has been created successfully.\n\n"+
		"Ticket ID: #%s\nSubject: %s\nPriority: %s\nStatus: %s\n\n"+
		"We will get back to you soon.",
		ticket.ID, ticket.Subject, ticket.Priority, ticket.Status)
	return n.send(ctx, creator.Email, fmt.Sprintf("Ticket Created - #%s", ticket.ID), body)
}

// TicketStatusChanged mails the creator about the transition.
func (n *EmailNotifier) TicketStatusChanged(ctx context.Context, ticket *domain.Ticket, creator *domain.User, oldStatus, newStatus domain.TicketStatus) error {
	body := fmt.Sprintf("Your ticket status has been updated.\n\n"+
		"Ticket ID: #%s\nSubject: %s\nPrevious Status: %s\nNew Status: %s\n\n"+
		"Thank you for your patience.",
		ticket.ID, ticket.Subject, oldStatus, newStatus)
	return n.send(ctx, creator.Email, fmt.Sprintf("Ticket Status Updated - #%s", ticket.ID), body)
}

// TicketAssigned mails the new assignee.
func (n *EmailNotifier) TicketAssigned(ctx context.Context, ticket *domain.Ticket, assignee *domain.User) error {
	body := fmt.Sprintf("A ticket has been assigned to you.\n\n"+
		"Ticket ID: #%s\nSubject: %s\nPriority: %s\nStatus: %s\n\n"+
		"Please review and take action as needed.",
		ticket.ID, ticket.Subject, ticket.Priority, ticket.Status)
	return n.send(ctx, assignee.Email, fmt.Sprintf("Ticket Assigned - #%s", ticket.ID), body)
}

// CommentAdded mails the ticket creator about a new comment.
func (n *EmailNotifier) CommentAdded(ctx context.Context, ticket *domain.Ticket, comment *domain.Comment, author, recipient *domain.User) error {
	body := fmt.Sprintf("A new comment has been added to your ticket.\n\n"+
		"Ticket ID: #%s\nSubject: %s\nComment by: %s\nComment: %s\n\n"+
		"Please check your ticket for more details.",
		ticket.ID, ticket.Subject, author.FullName(), comment.Content)
	return n.send(ctx, recipient.Email, fmt.Sprintf("New Comment on Ticket #%s", ticket.ID), body)
}

func (n *EmailNotifier) send(_ context.Context, to, subject, body string) error {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		n.logger.Debug("email sender not configured; dropping notification",
			zap.String("to", to),
			zap.String("subject", subject))
		return nil
	}
	// Outbound SMTP delivery is an external collaborator; the stub logs what
	// would be sent.
	n.logger.Info("email notification",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}
