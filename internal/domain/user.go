package domain

import "fmt"

// Role is the fixed access level of a user record.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Roles lists every role.
var Roles = []Role{RoleUser, RoleAgent, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role can triage tickets.
func (r Role) IsStaff() bool {
	switch r {
	case RoleAgent, RoleAdmin:
		return true
	case RoleUser:
		return false
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(raw string) (Role, error) {
	r := Role(raw)
	if !r.Valid() {
		return "", fmt.Errorf("%w: role %q", ErrInvalidEnum, raw)
	}
	return r, nil
}

// User is an identity record. Immutable once created.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Name         string
	Email        string
	Role         Role
}
