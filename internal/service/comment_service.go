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

// CommentService appends to and reads ticket threads. Read access to the
// ticket has already been checked by the caller via the policy package.
type CommentService struct {
	comments   repository.CommentRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// AddComment persists a comment with a server-assigned timestamp and fires a
// comment-added notification, unless the author is the ticket creator
// themselves (no self-notification).
func (s *CommentService) AddComment(ctx context.Context, content string, ticket *domain.Ticket, author *domain.User) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewInvalidArgument("content required", nil)
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: author.ID,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.shouldNotify(ctx, ticket, author) {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketCommentAdded,
			TicketID: ticket.ID,
			ActorID:  author.ID,
			Payload: events.TicketCommentAddedPayload{
				CommentID:   comment.ID,
				AuthorID:    author.ID,
				BodyPreview: preview(comment.Content, 120),
			},
		})
	}
	return comment, nil
}

// ListComments returns the ticket's thread ascending by creation time.
func (s *CommentService) ListComments(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// shouldNotify suppresses the notification when the comment author is the
// ticket creator; the creator is the recipient and should not be alerted
// about their own comment. Lookup failures err on the side of notifying.
func (s *CommentService) shouldNotify(ctx context.Context, ticket *domain.Ticket, author *domain.User) bool {
	if ticket.CreatorID == author.ID {
		return false
	}
	creator, err := s.users.GetByID(ctx, ticket.CreatorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false
		}
		return true
	}
	return !strings.EqualFold(creator.Email, author.Email)
}

func (s *CommentService) publishEvent(ctx context.Context, event events.Event) {
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

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
