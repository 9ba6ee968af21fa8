package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidEnum is wrapped by every Parse* function.
var ErrInvalidEnum = errors.New("invalid enum value")

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusOnHold     TicketStatus = "on-hold"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in workflow order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusOnHold,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusOnHold, TicketStatusClosed:
		return true
	}
	return false
}

// ParseTicketStatus converts raw input into a TicketStatus.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	s := TicketStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: status %q", ErrInvalidEnum, raw)
	}
	return s, nil
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// TicketPriorities lists every priority from least to most urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// ParseTicketPriority converts raw input into a TicketPriority.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	p := TicketPriority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("%w: priority %q", ErrInvalidEnum, raw)
	}
	return p, nil
}

// Ticket is the aggregate for support requests.
// CreatedByID, CreatedAt and SLADeadline never change after creation.
type Ticket struct {
	ID           int64
	TicketNumber string
	Title        string
	Description  string
	Status       TicketStatus
	Priority     TicketPriority
	CreatedByID  int64
	AssignedToID *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	SLADeadline  *time.Time
}

// Clone returns a deep copy so callers cannot alias stored pointers.
func (t Ticket) Clone() Ticket {
	if t.AssignedToID != nil {
		id := *t.AssignedToID
		t.AssignedToID = &id
	}
	if t.SLADeadline != nil {
		d := *t.SLADeadline
		t.SLADeadline = &d
	}
	return t
}
