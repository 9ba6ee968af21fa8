package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/sla"
)

// CreateTicketRequest payload. Status is accepted and ignored; new tickets are always open.
type CreateTicketRequest struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description" validate:"required"`
	Priority     string `json:"priority" validate:"required,oneof=low medium high critical"`
	AssignedToID *int64 `json:"assigned_to_id" validate:"omitempty,gt=0"`
	Status       string `json:"status"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in-progress on-hold closed"`
}

// AssignRequest payload. A null assigned_to_id unassigns the ticket.
type AssignRequest struct {
	AssignedToID *int64 `json:"assigned_to_id" validate:"omitempty,gt=0"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// TicketResponse includes the SLA evaluated at response time.
type TicketResponse struct {
	ID           int64                 `json:"id"`
	TicketNumber string                `json:"ticket_number"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	CreatedByID  int64                 `json:"created_by_id"`
	AssignedToID *int64                `json:"assigned_to_id"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	SLADeadline  *time.Time            `json:"sla_deadline"`
	SLA          sla.Status            `json:"sla"`
}

// CommentResponse represents a thread comment.
type CommentResponse struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	TicketID  int64     `json:"ticket_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityResponse represents an audit entry.
type ActivityResponse struct {
	ID        int64                 `json:"id"`
	Action    domain.ActivityAction `json:"action"`
	Details   string                `json:"details"`
	TicketID  int64                 `json:"ticket_id"`
	UserID    int64                 `json:"user_id"`
	CreatedAt time.Time             `json:"created_at"`
}

// NewTicketResponse maps a ticket and its SLA status.
func NewTicketResponse(ticket *domain.Ticket, status sla.Status) TicketResponse {
	return TicketResponse{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Title:        ticket.Title,
		Description:  ticket.Description,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		CreatedByID:  ticket.CreatedByID,
		AssignedToID: ticket.AssignedToID,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
		SLADeadline:  ticket.SLADeadline,
		SLA:          status,
	}
}

func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		Content:   comment.Content,
		TicketID:  comment.TicketID,
		UserID:    comment.UserID,
		CreatedAt: comment.CreatedAt,
	}
}

func NewActivityResponse(activity *domain.Activity) ActivityResponse {
	return ActivityResponse{
		ID:        activity.ID,
		Action:    activity.Action,
		Details:   activity.Details,
		TicketID:  activity.TicketID,
		UserID:    activity.UserID,
		CreatedAt: activity.CreatedAt,
	}
}
