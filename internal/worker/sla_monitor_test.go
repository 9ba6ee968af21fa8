package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

var start = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestSLAMonitor_ReportsEachBreachOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	requester := &domain.User{Username: "carlos", Name: "Carlos", Role: domain.RoleUser}
	agent := &domain.User{Username: "ana", Name: "Ana", Role: domain.RoleAgent}
	require.NoError(t, store.Repos().Users.Create(ctx, requester))
	require.NoError(t, store.Repos().Users.Create(ctx, agent))

	clk := &clock{now: start}
	dispatcher := events.NewInMemoryDispatcher()
	var breached []events.Event
	dispatcher.Subscribe(events.EventTicketSLABreached, func(_ context.Context, e events.Event) error {
		breached = append(breached, e)
		return nil
	})

	tickets := service.NewTicketService(service.TicketDependencies{Store: store, Clock: clk.Now})
	critical, err := tickets.CreateTicket(ctx, domain.NewActor(requester), service.TicketCreateInput{
		Title: "Site down", Description: "500 on checkout", Priority: domain.TicketPriorityCritical,
	})
	require.NoError(t, err)
	_, err = tickets.CreateTicket(ctx, domain.NewActor(requester), service.TicketCreateInput{
		Title: "Typo", Description: "Footer typo", Priority: domain.TicketPriorityLow,
	})
	require.NoError(t, err)

	monitor := NewSLAMonitor(tickets, dispatcher, observability.NewMetrics(), zap.NewNop(), clk.Now)

	clk.Set(start.Add(3 * time.Hour))
	n, err := monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	clk.Set(start.Add(5 * time.Hour))
	n, err = monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, breached, 1)
	assert.Equal(t, critical.ID, breached[0].TicketID)
	assert.Nil(t, breached[0].Actor)

	n, err = monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "already reported")

	agentActor := domain.NewActor(agent)
	_, err = tickets.ChangeStatus(ctx, agentActor, critical.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	n, err = monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "closed tickets are never breached")

	_, err = tickets.ChangeStatus(ctx, agentActor, critical.ID, domain.TicketStatusOpen)
	require.NoError(t, err)
	n, err = monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "reopened overdue ticket is reported again")
}

func TestSLAMonitor_StartStop(t *testing.T) {
	tickets := service.NewTicketService(service.TicketDependencies{Store: memory.NewStore()})
	monitor := NewSLAMonitor(tickets, nil, nil, nil, nil)

	assert.Error(t, monitor.Start("not a schedule"))
	require.NoError(t, monitor.Start("@every 1h"))
	assert.Error(t, monitor.Start("@every 1h"))
	monitor.Stop()
	monitor.Stop()
}

func TestStartNotificationWorker_NilSafe(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{EmailFrom: "noreply@example.com"})
	assert.NotPanics(t, func() {
		StartNotificationWorker(notifications, nil, dispatcher)
		StartNotificationWorker(nil, nil, nil)
	})
	assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated}))
}
