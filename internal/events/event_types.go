package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
	EventTicketSLABreached   EventType = "ticket_sla_breached"
)

// EventTypes lists every type the dispatcher can carry.
var EventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventTicketCommentAdded,
	EventTicketSLABreached,
}

// Actor encapsulates actor metadata for an event. System events have no actor.
type Actor struct {
	UserID int64       `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	TicketID     int64       `json:"ticket_id"`
	TicketNumber string      `json:"ticket_number"`
	Actor        *Actor      `json:"actor,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// NewEvent stamps a fresh id on an event about ticket.
func NewEvent(eventType EventType, ticket *domain.Ticket, actor *domain.Actor, at time.Time, payload interface{}) Event {
	event := Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Timestamp:    at.UTC(),
		Payload:      payload,
	}
	if actor != nil && actor.Verified() {
		event.Actor = &Actor{UserID: actor.ID(), Role: actor.Role()}
	}
	return event
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title        string                `json:"title"`
	Priority     domain.TicketPriority `json:"priority"`
	AssignedToID *int64                `json:"assigned_to_id,omitempty"`
	SLADeadline  *time.Time            `json:"sla_deadline,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousAssigneeID *int64 `json:"previous_assignee_id,omitempty"`
	AssigneeID         *int64 `json:"assignee_id,omitempty"`
	AssigneeName       string `json:"assignee_name,omitempty"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID   int64  `json:"comment_id"`
	AuthorID    int64  `json:"author_id"`
	BodyPreview string `json:"body_preview"`
}

// TicketSLABreachedPayload payload.
type TicketSLABreachedPayload struct {
	Priority     domain.TicketPriority `json:"priority"`
	Deadline     time.Time             `json:"deadline"`
	AssignedToID *int64                `json:"assigned_to_id,omitempty"`
}
