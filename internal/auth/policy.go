package auth

import "github.com/spec-kit/helpdesk-service/internal/domain"

// CanViewTicket reports whether actor may read ticket. Users only see their own.
func CanViewTicket(actor domain.Actor, ticket *domain.Ticket) bool {
	if ticket == nil || !actor.Verified() {
		return false
	}
	switch actor.Role() {
	case domain.RoleAgent, domain.RoleAdmin:
		return true
	case domain.RoleUser:
		return ticket.CreatedByID == actor.ID()
	}
	return false
}

// CanModifyTicket reports whether actor may change status or comment on ticket.
func CanModifyTicket(actor domain.Actor, ticket *domain.Ticket) bool {
	return CanViewTicket(actor, ticket)
}

// CanReassign reports whether actor may change ticket assignees.
func CanReassign(actor domain.Actor) bool {
	return actor.Verified() && actor.Role().IsStaff()
}

// CanManageUsers reports whether actor may create accounts.
func CanManageUsers(actor domain.Actor) bool {
	return actor.Verified() && actor.Role() == domain.RoleAdmin
}

// ScopeCreator returns the creator id a listing must be restricted to, or nil for staff.
func ScopeCreator(actor domain.Actor) *int64 {
	switch actor.Role() {
	case domain.RoleAgent, domain.RoleAdmin:
		return nil
	case domain.RoleUser:
	}
	id := actor.ID()
	return &id
}
