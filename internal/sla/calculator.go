// Package sla turns a ticket's priority and age into a compliance signal.
package sla

import (
	"fmt"
	"math"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var allotments = map[domain.TicketPriority]time.Duration{
	domain.TicketPriorityCritical: 4 * time.Hour,
	domain.TicketPriorityHigh:     8 * time.Hour,
	domain.TicketPriorityMedium:   24 * time.Hour,
	domain.TicketPriorityLow:      72 * time.Hour,
}

// State is the coarse SLA condition of a ticket.
type State string

const (
	StateActive    State = "active"
	StateExpired   State = "expired"
	StateCompleted State = "completed"
	StateUntracked State = "untracked"
)

// Level buckets the remaining percentage for display.
type Level string

const (
	LevelOK       Level = "ok"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Status is the evaluated SLA view of a ticket at an instant.
type Status struct {
	State            State     `json:"state"`
	Deadline         time.Time `json:"deadline,omitempty"`
	TotalMinutes     int64     `json:"total_minutes"`
	RemainingMinutes int64     `json:"remaining_minutes"`
	PercentRemaining int       `json:"percent_remaining"`
	Level            Level     `json:"level"`
	Display          string    `json:"display"`
}

// Expired reports whether the deadline passed while the ticket was unresolved.
func (s Status) Expired() bool {
	return s.State == StateExpired
}

// Allotted returns the resolution budget for a priority.
func Allotted(priority domain.TicketPriority) (time.Duration, error) {
	d, ok := allotments[priority]
	if !ok {
		return 0, fmt.Errorf("%w: priority %q", domain.ErrInvalidEnum, priority)
	}
	return d, nil
}

// DeadlineFor returns createdAt plus the priority allotment.
func DeadlineFor(priority domain.TicketPriority, createdAt time.Time) (time.Time, error) {
	d, err := Allotted(priority)
	if err != nil {
		return time.Time{}, err
	}
	return createdAt.Add(d), nil
}

// Evaluate computes the SLA status of ticket at now. Closing a ticket stops the clock.
func Evaluate(ticket *domain.Ticket, now time.Time) Status {
	if ticket.Status == domain.TicketStatusClosed {
		return Status{
			State:            StateCompleted,
			Deadline:         deadlineOf(ticket),
			TotalMinutes:     totalMinutes(ticket.Priority),
			PercentRemaining: 100,
			Level:            LevelOK,
			Display:          "Completed",
		}
	}
	if ticket.SLADeadline == nil {
		return Status{
			State:            StateUntracked,
			PercentRemaining: 100,
			Level:            LevelOK,
			Display:          "No SLA defined",
		}
	}

	total := totalMinutes(ticket.Priority)
	remaining := ticket.SLADeadline.Sub(now)
	if remaining <= 0 {
		return Status{
			State:        StateExpired,
			Deadline:     *ticket.SLADeadline,
			TotalMinutes: total,
			Level:        LevelCritical,
			Display:      "Expired",
		}
	}

	remainingMinutes := int64(remaining / time.Minute)
	percent := 0
	if total > 0 {
		percent = clampPercent(math.Round(float64(remainingMinutes) / float64(total) * 100))
	}
	return Status{
		State:            StateActive,
		Deadline:         *ticket.SLADeadline,
		TotalMinutes:     total,
		RemainingMinutes: remainingMinutes,
		PercentRemaining: percent,
		Level:            levelFor(percent),
		Display:          FormatRemaining(remainingMinutes) + " remaining",
	}
}

// IsWithinSLA reports whether a resolved ticket was last touched at or before its deadline.
// UpdatedAt stands in for the resolution time, so only call this for closed tickets.
func IsWithinSLA(ticket *domain.Ticket) bool {
	if ticket.SLADeadline == nil {
		return false
	}
	return !ticket.UpdatedAt.After(*ticket.SLADeadline)
}

// FormatRemaining renders whole minutes as "Nm", "Hh Mm" or "Dd Hh".
func FormatRemaining(minutes int64) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	}
	return fmt.Sprintf("%dd %dh", hours/24, hours%24)
}

func deadlineOf(ticket *domain.Ticket) time.Time {
	if ticket.SLADeadline == nil {
		return time.Time{}
	}
	return *ticket.SLADeadline
}

func totalMinutes(priority domain.TicketPriority) int64 {
	return int64(allotments[priority] / time.Minute)
}

func clampPercent(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v)
}

func levelFor(percent int) Level {
	switch {
	case percent <= 25:
		return LevelCritical
	case percent <= 50:
		return LevelWarning
	}
	return LevelOK
}
