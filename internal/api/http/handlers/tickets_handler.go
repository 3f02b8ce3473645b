package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketdesk/ticketing/internal/api/dto"
	"github.com/ticketdesk/ticketing/internal/auth"
	"github.com/ticketdesk/ticketing/internal/domain"
	"github.com/ticketdesk/ticketing/internal/policy"
	"github.com/ticketdesk/ticketing/internal/service"
	apperrors "github.com/ticketdesk/ticketing/pkg/util"
)

// TicketsHandler manages the authenticated ticket endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	comments    *service.CommentService
	attachments *service.AttachmentService
	users       *service.UserService
	stats       *service.StatsService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, comments *service.CommentService, attachments *service.AttachmentService, users *service.UserService, stats *service.StatsService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, comments: comments, attachments: attachments, users: users, stats: stats}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		Subject:     req.Subject,
		Description: req.Description,
	}
	if req.Priority != "" {
		priority, valid := domain.ParseTicketPriority(req.Priority)
		if !valid {
			return apperrors.NewInvalidArgument("unknown priority", map[string]any{"priority": req.Priority})
		}
		input.Priority = priority
	}

	ticket, err := h.tickets.CreateTicket(c.Context(), input, user)
	if err != nil {
		return err
	}
	h.stats.Invalidate(c.Context())
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets. Results are scoped by role: admins see every
// ticket, agents the tickets they created or hold, users their own.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.tickets.ListTicketsFor(c.Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if !policy.CanAccess(user, ticket) {
		return apperrors.NewForbidden("no access to this ticket")
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateStatus PUT /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	status, valid := domain.ParseTicketStatus(req.Status)
	if !valid {
		return apperrors.NewInvalidArgument("unknown status", map[string]any{"status": req.Status})
	}

	ticket, err := h.tickets.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if !policy.CanModify(user, ticket) {
		return apperrors.NewForbidden("no access to this ticket")
	}

	updated, err := h.tickets.UpdateStatus(c.Context(), ticket.ID, status, user)
	if err != nil {
		return err
	}
	h.stats.Invalidate(c.Context())
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(updated)})
}

// AssignTicket PUT /tickets/:id/assign. A null assignee_id clears the
// assignment without touching the status.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}

	ticket, err := h.tickets.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if !policy.CanModify(user, ticket) {
		return apperrors.NewForbidden("no access to this ticket")
	}

	assignee, err := h.resolveAssignee(c, req.AssigneeID)
	if err != nil {
		return err
	}

	updated, err := h.tickets.AssignTicket(c.Context(), ticket.ID, assignee, user)
	if err != nil {
		return err
	}
	h.stats.Invalidate(c.Context())
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(updated)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}

	ticket, err := h.tickets.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if !policy.CanAccess(user, ticket) {
		return apperrors.NewForbidden("no access to this ticket")
	}

	comment, err := h.comments.AddComment(c.Context(), req.Content, ticket, user)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if !policy.CanAccess(user, ticket) {
		return apperrors.NewForbidden("no access to this ticket")
	}

	comments, err := h.comments.ListComments(c.Context(), ticket.ID)
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, dto.NewCommentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddAttachment POST /tickets/:id/attachments. Registers metadata for a file
// already placed in storage.
func (h *TicketsHandler) AddAttachment(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}

	ticket, err := h.tickets.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if !policy.CanAccess(user, ticket) {
		return apperrors.NewForbidden("no access to this ticket")
	}

	attachment, err := h.attachments.AddAttachment(c.Context(), ticket, service.AttachmentInput{
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
		StorageKey: req.StorageKey,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewAttachmentResponse(attachment)})
}

// ListAttachments GET /tickets/:id/attachments.
func (h *TicketsHandler) ListAttachments(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if !policy.CanAccess(user, ticket) {
		return apperrors.NewForbidden("no access to this ticket")
	}

	attachments, err := h.attachments.ListAttachments(c.Context(), ticket.ID)
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		items = append(items, dto.NewAttachmentResponse(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// RateTicket POST /tickets/:id/rate. Guard order lives in the service:
// creator check, then status, then range.
func (h *TicketsHandler) RateTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}

	ticket, err := h.tickets.RateTicket(c.Context(), c.Params("id"), req.Rating, req.Feedback, user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// SearchTickets GET /tickets/search. Admins search globally with the full
// predicate set; everyone else searches within their own tickets.
func (h *TicketsHandler) SearchTickets(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	status, priority, err := parseStatusPriorityQuery(c)
	if err != nil {
		return err
	}

	if user.Role == domain.RoleAdmin {
		filter := service.GlobalTicketFilter{
			Status:   status,
			Priority: priority,
			Search:   c.Query("search"),
		}
		if assigneeID := c.Query("assignee_id"); assigneeID != "" {
			filter.AssigneeID = &assigneeID
		}
		if creatorID := c.Query("creator_id"); creatorID != "" {
			filter.CreatorID = &creatorID
		}
		tickets, err := h.tickets.SearchTickets(c.Context(), filter)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
	}

	tickets, err := h.tickets.SearchUserTickets(c.Context(), user, service.ScopedTicketFilter{
		Status:   status,
		Priority: priority,
		Search:   c.Query("search"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

func (h *TicketsHandler) resolveAssignee(c *fiber.Ctx, assigneeID *string) (*domain.User, error) {
	if assigneeID == nil {
		return nil, nil
	}
	assignee, err := h.users.GetUser(c.Context(), *assigneeID)
	if err != nil {
		return nil, err
	}
	if !assignee.Role.CanBeAssignee() {
		return nil, apperrors.NewInvalidArgument("assignee must be a support agent or admin", map[string]any{"assignee_id": assignee.ID})
	}
	return assignee, nil
}

func parseStatusPriorityQuery(c *fiber.Ctx) (*domain.TicketStatus, *domain.TicketPriority, error) {
	var status *domain.TicketStatus
	var priority *domain.TicketPriority

	if raw := c.Query("status"); raw != "" {
		parsed, valid := domain.ParseTicketStatus(raw)
		if !valid {
			return nil, nil, apperrors.NewInvalidArgument("unknown status", map[string]any{"status": raw})
		}
		status = &parsed
	}
	if raw := c.Query("priority"); raw != "" {
		parsed, valid := domain.ParseTicketPriority(raw)
		if !valid {
			return nil, nil, apperrors.NewInvalidArgument("unknown priority", map[string]any{"priority": raw})
		}
		priority = &parsed
	}
	return status, priority, nil
}
