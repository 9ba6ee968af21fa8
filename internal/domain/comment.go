package domain

import "time"

// Comment is an immutable note on a ticket thread.
type Comment struct {
	ID        int64
	Content   string
	TicketID  int64
	UserID    int64
	CreatedAt time.Time
}
