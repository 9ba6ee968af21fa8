package domain

// Actor is a verified caller identity. It can only be built from a user
// record that was loaded from the store, never from a bare id.
type Actor struct {
	id   int64
	role Role
	name string
}

// NewActor builds an Actor from a stored user.
func NewActor(user *User) Actor {
	if user == nil {
		return Actor{}
	}
	return Actor{id: user.ID, role: user.Role, name: user.Name}
}

// ID returns the acting user id.
func (a Actor) ID() int64 { return a.id }

// Role returns the acting user role.
func (a Actor) Role() Role { return a.role }

// Name returns the acting user display name.
func (a Actor) Name() string { return a.name }

// Verified reports whether the actor was built from a real user.
func (a Actor) Verified() bool { return a.id > 0 && a.role.Valid() }
