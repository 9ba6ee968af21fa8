package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestDispatcher_RunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	boom := errors.New("webhook down")
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return boom
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCommentAdded}))
}

func TestNewEvent_CarriesVerifiedActorOnly(t *testing.T) {
	ticket := &domain.Ticket{ID: 3, TicketNumber: "TK-ZZ99"}
	actor := domain.NewActor(&domain.User{ID: 2, Role: domain.RoleAgent})
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))

	event := NewEvent(EventTicketAssigned, ticket, &actor, at, TicketAssignedPayload{})
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, int64(3), event.TicketID)
	assert.Equal(t, time.UTC, event.Timestamp.Location())
	require.NotNil(t, event.Actor)
	assert.Equal(t, int64(2), event.Actor.UserID)

	system := NewEvent(EventTicketSLABreached, ticket, nil, at, nil)
	assert.Nil(t, system.Actor)
}

func TestRedisRelay_PublishesJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	assert.Nil(t, NewRedisRelay(client, ""))
	assert.Nil(t, NewRedisRelay(nil, "helpdesk.events"))

	ctx := context.Background()
	sub := client.Subscribe(ctx, "helpdesk.events")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	d := NewInMemoryDispatcher()
	NewRedisRelay(client, "helpdesk.events").Attach(d)

	event := NewEvent(EventTicketStatusChanged, &domain.Ticket{ID: 9, TicketNumber: "TK-AAAA"}, nil, time.Now(),
		TicketStatusChangedPayload{OldStatus: domain.TicketStatusOpen, NewStatus: domain.TicketStatusClosed})
	require.NoError(t, d.Publish(ctx, event))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
	assert.Equal(t, "ticket_status_changed", decoded["type"])
	assert.Equal(t, "TK-AAAA", decoded["ticket_number"])
}
