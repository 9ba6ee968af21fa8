package domain

import "time"

// ActivityAction captures what kind of change an audit entry records.
type ActivityAction string

const (
	ActivityCreated      ActivityAction = "created"
	ActivityStatusChange ActivityAction = "status_change"
	ActivityComment      ActivityAction = "comment"
	ActivityAssignment   ActivityAction = "assignment"
	ActivityUpdated      ActivityAction = "updated"
)

// Valid reports whether a is a known action.
func (a ActivityAction) Valid() bool {
	switch a {
	case ActivityCreated, ActivityStatusChange, ActivityComment, ActivityAssignment, ActivityUpdated:
		return true
	}
	return false
}

// Activity is an append-only audit trail entry.
type Activity struct {
	ID        int64
	Action    ActivityAction
	Details   string
	TicketID  int64
	UserID    int64
	CreatedAt time.Time
}
