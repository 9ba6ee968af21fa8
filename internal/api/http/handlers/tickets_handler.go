package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints. Requesters only reach their own tickets.
type TicketsHandler struct {
	tickets     *service.TicketService
	users       *service.UserService
	performance *service.PerformanceService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, users *service.UserService, performance *service.PerformanceService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, users: users, performance: performance}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	if req.AssignedToID != nil {
		if !auth.CanReassign(principal.Actor) {
			return apperrors.NewForbidden("only staff may assign tickets")
		}
		if _, err := h.users.Get(c.UserContext(), *req.AssignedToID); err != nil {
			if apperrors.HasCode(err, apperrors.CodeNotFound) {
				return apperrors.NewValidationError("assignee does not exist", map[string]any{"assigned_to_id": *req.AssignedToID})
			}
			return err
		}
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), principal.Actor, service.TicketCreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     domain.TicketPriority(req.Priority),
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": h.ticketResponse(ticket)})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	filter.CreatedByID = auth.ScopeCreator(principal.Actor)

	tickets, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, h.ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /api/tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.performance.TicketStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketStatsResponse(stats)})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, _, err := h.visibleTicket(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(ticket)})
}

// GetSLA GET /api/tickets/:id/sla.
func (h *TicketsHandler) GetSLA(c *fiber.Ctx) error {
	ticket, _, err := h.visibleTicket(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.tickets.EvaluateSLA(ticket)})
}

// UpdateStatus PATCH /api/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	ticket, principal, err := h.visibleTicket(c)
	if err != nil {
		return err
	}
	if !auth.CanModifyTicket(principal.Actor, ticket) {
		return apperrors.NewForbidden("ticket cannot be modified")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	updated, err := h.tickets.ChangeStatus(c.UserContext(), principal.Actor, ticket.ID, domain.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(updated)})
}

// Assign PATCH /api/tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if !auth.CanReassign(principal.Actor) {
		return apperrors.NewForbidden("only staff may assign tickets")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	updated, err := h.tickets.Reassign(c.UserContext(), principal.Actor, id, req.AssignedToID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(updated)})
}

// ListComments GET /api/tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	ticket, _, err := h.visibleTicket(c)
	if err != nil {
		return err
	}
	comments, err := h.tickets.ListComments(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, dto.NewCommentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment POST /api/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	ticket, principal, err := h.visibleTicket(c)
	if err != nil {
		return err
	}
	if !auth.CanModifyTicket(principal.Actor, ticket) {
		return apperrors.NewForbidden("ticket cannot be modified")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	comment, err := h.tickets.AddComment(c.UserContext(), principal.Actor, ticket.ID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// ListActivities GET /api/tickets/:id/activities.
func (h *TicketsHandler) ListActivities(c *fiber.Ctx) error {
	ticket, _, err := h.visibleTicket(c)
	if err != nil {
		return err
	}
	activities, err := h.tickets.ListActivities(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	items := make([]dto.ActivityResponse, 0, len(activities))
	for i := range activities {
		items = append(items, dto.NewActivityResponse(&activities[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// visibleTicket loads the :id ticket and hides it from requesters who did not open it.
func (h *TicketsHandler) visibleTicket(c *fiber.Ctx) (*domain.Ticket, *auth.Principal, error) {
	principal, err := requirePrincipal(c)
	if err != nil {
		return nil, nil, err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil, nil, err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), id)
	if err != nil {
		return nil, nil, err
	}
	if !auth.CanViewTicket(principal.Actor, ticket) {
		return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return ticket, principal, nil
}

func (h *TicketsHandler) ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.NewTicketResponse(ticket, h.tickets.EvaluateSLA(ticket))
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	for _, part := range splitList(c.Query("status")) {
		status, err := domain.ParseTicketStatus(part)
		if err != nil {
			return filter, apperrors.NewValidationError("invalid status filter", map[string]any{"status": part})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, part := range splitList(c.Query("priority")) {
		priority, err := domain.ParseTicketPriority(part)
		if err != nil {
			return filter, apperrors.NewValidationError("invalid priority filter", map[string]any{"priority": part})
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	if raw := c.Query("assignedTo"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, apperrors.NewValidationError("invalid assignedTo filter", map[string]any{"assignedTo": raw})
		}
		filter.AssignedToID = &id
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}
