package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ticketdesk/ticketing/internal/api/dto"
	"github.com/ticketdesk/ticketing/internal/auth"
	"github.com/ticketdesk/ticketing/internal/domain"
	"github.com/ticketdesk/ticketing/internal/service"
	apperrors "github.com/ticketdesk/ticketing/pkg/util"
)

// AdminHandler manages the admin-only user and ticket endpoints.
type AdminHandler struct {
	auth    *service.AuthService
	users   *service.UserService
	tickets *service.TicketService
	stats   *service.StatsService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService, users *service.UserService, tickets *service.TicketService, stats *service.StatsService) *AdminHandler {
	return &AdminHandler{auth: authService, users: users, tickets: tickets, stats: stats}
}

// ListUsers GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.users.ListUsers(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponses(users)})
}

// ListSupportAgents GET /admin/users/support-agents.
func (h *AdminHandler) ListSupportAgents(c *fiber.Ctx) error {
	agents, err := h.users.ListSupportAgents(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponses(agents)})
}

// CreateUser POST /admin/users. Provisions an account with an explicit role.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewInvalidArgument("username, email, password required", nil)
	}

	role := domain.RoleUser
	if req.Role != "" {
		parsed, valid := domain.ParseRole(req.Role)
		if !valid {
			return apperrors.NewInvalidArgument("unknown role", map[string]any{"role": req.Role})
		}
		role = parsed
	}

	user, err := h.auth.CreateAccount(c.Context(), service.SignupInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, role)
	if err != nil {
		return err
	}
	h.stats.Invalidate(c.Context())
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateUser PUT /admin/users/:id.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}

	input := service.UserUpdateInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.Role != nil {
		parsed, valid := domain.ParseRole(*req.Role)
		if !valid {
			return apperrors.NewInvalidArgument("unknown role", map[string]any{"role": *req.Role})
		}
		input.Role = &parsed
	}

	user, err := h.users.UpdateUser(c.Context(), c.Params("id"), input)
	if err != nil {
		return err
	}
	h.stats.Invalidate(c.Context())
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// DeleteUser DELETE /admin/users/:id.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.users.DeleteUser(c.Context(), c.Params("id")); err != nil {
		return err
	}
	h.stats.Invalidate(c.Context())
	return c.SendStatus(fiber.StatusNoContent)
}

// ListTickets GET /admin/tickets. Full global filter set.
func (h *AdminHandler) ListTickets(c *fiber.Ctx) error {
	status, priority, err := parseStatusPriorityQuery(c)
	if err != nil {
		return err
	}
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

// ForceAssign PUT /admin/tickets/:id/force-assign. Skips the per-ticket
// modification policy; role enforcement happens at the route level.
func (h *AdminHandler) ForceAssign(c *fiber.Ctx) error {
	admin, err := adminFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}

	var assignee *domain.User
	if req.AssigneeID != nil {
		assignee, err = h.users.GetUser(c.Context(), *req.AssigneeID)
		if err != nil {
			return err
		}
		if !assignee.Role.CanBeAssignee() {
			return apperrors.NewInvalidArgument("assignee must be a support agent or admin", map[string]any{"assignee_id": assignee.ID})
		}
	}

	ticket, err := h.tickets.AssignTicket(c.Context(), c.Params("id"), assignee, admin)
	if err != nil {
		return err
	}
	h.stats.Invalidate(c.Context())
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ForceStatus PUT /admin/tickets/:id/force-status.
func (h *AdminHandler) ForceStatus(c *fiber.Ctx) error {
	admin, err := adminFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	status, valid := domain.ParseTicketStatus(req.Status)
	if !valid {
		return apperrors.NewInvalidArgument("unknown status", map[string]any{"status": req.Status})
	}

	ticket, err := h.tickets.UpdateStatus(c.Context(), c.Params("id"), status, admin)
	if err != nil {
		return err
	}
	h.stats.Invalidate(c.Context())
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// DeleteTicket DELETE /admin/tickets/:id. Comments and attachments cascade.
func (h *AdminHandler) DeleteTicket(c *fiber.Ctx) error {
	if err := h.tickets.DeleteTicket(c.Context(), c.Params("id")); err != nil {
		return err
	}
	h.stats.Invalidate(c.Context())
	return c.SendStatus(fiber.StatusNoContent)
}

// Stats GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.stats.DashboardStats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

func adminFromContext(c *fiber.Ctx) (*domain.User, error) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return user, nil
}

func userResponses(users []domain.User) []dto.UserResponse {
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return items
}
