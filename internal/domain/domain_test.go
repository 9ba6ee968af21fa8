package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnums(t *testing.T) {
	s, err := ParseTicketStatus("on-hold")
	require.NoError(t, err)
	assert.Equal(t, TicketStatusOnHold, s)
	_, err = ParseTicketStatus("pending")
	assert.ErrorIs(t, err, ErrInvalidEnum)

	p, err := ParseTicketPriority("critical")
	require.NoError(t, err)
	assert.Equal(t, TicketPriorityCritical, p)
	_, err = ParseTicketPriority("URGENT")
	assert.ErrorIs(t, err, ErrInvalidEnum)

	r, err := ParseRole("agent")
	require.NoError(t, err)
	assert.True(t, r.IsStaff())
	assert.False(t, RoleUser.IsStaff())
	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrInvalidEnum)

	assert.True(t, ActivityComment.Valid())
	assert.False(t, ActivityAction("deleted").Valid())
}

func TestTicketCloneDoesNotAlias(t *testing.T) {
	assignee := int64(7)
	deadline := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	original := Ticket{ID: 1, AssignedToID: &assignee, SLADeadline: &deadline}

	clone := original.Clone()
	*clone.AssignedToID = 8
	*clone.SLADeadline = deadline.Add(time.Hour)

	assert.Equal(t, int64(7), *original.AssignedToID)
	assert.Equal(t, deadline, *original.SLADeadline)
	assert.Nil(t, Ticket{}.Clone().AssignedToID)
}

func TestActorVerification(t *testing.T) {
	assert.False(t, Actor{}.Verified())
	assert.False(t, NewActor(nil).Verified())
	assert.False(t, NewActor(&User{ID: 0, Role: RoleAdmin}).Verified())
	assert.False(t, NewActor(&User{ID: 3, Role: "ghost"}).Verified())

	actor := NewActor(&User{ID: 3, Name: "Ana", Role: RoleAgent})
	assert.True(t, actor.Verified())
	assert.Equal(t, int64(3), actor.ID())
	assert.Equal(t, RoleAgent, actor.Role())
	assert.Equal(t, "Ana", actor.Name())
}
