package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/sla"
)

// unresolvedStatuses are the statuses whose SLA clock is still running.
var unresolvedStatuses = []domain.TicketStatus{
	domain.TicketStatusOpen,
	domain.TicketStatusInProgress,
	domain.TicketStatusOnHold,
}

// SLAMonitor periodically looks for unresolved tickets past their deadline
// and publishes one breach event per ticket.
type SLAMonitor struct {
	tickets    *service.TicketService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	reported map[int64]struct{}
	cron     *cron.Cron
}

// NewSLAMonitor constructs the monitor. now defaults to time.Now.
func NewSLAMonitor(tickets *service.TicketService, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger, now func() time.Time) *SLAMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &SLAMonitor{
		tickets:    tickets,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		now:        now,
		reported:   make(map[int64]struct{}),
	}
}

// Start schedules Scan with a standard cron expression or an "@every" descriptor.
func (m *SLAMonitor) Start(schedule string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron != nil {
		return fmt.Errorf("sla monitor already started")
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, m.runScheduled); err != nil {
		return fmt.Errorf("invalid sla monitor schedule %q: %w", schedule, err)
	}
	c.Start()
	m.cron = c
	m.logger.Info("sla monitor started", zap.String("schedule", schedule))
	return nil
}

// Stop halts the schedule and waits for a running scan to finish.
func (m *SLAMonitor) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	m.logger.Info("sla monitor stopped")
}

func (m *SLAMonitor) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := m.Scan(ctx); err != nil {
		m.logger.Error("sla scan failed", zap.Error(err))
	}
}

// Scan reports newly breached tickets and returns how many were reported.
func (m *SLAMonitor) Scan(ctx context.Context) (int, error) {
	tickets, err := m.tickets.ListTickets(ctx, service.TicketListFilter{Statuses: unresolvedStatuses})
	if err != nil {
		return 0, err
	}
	now := m.now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	open := make(map[int64]struct{}, len(tickets))
	reported := 0
	for i := range tickets {
		ticket := &tickets[i]
		open[ticket.ID] = struct{}{}
		if _, done := m.reported[ticket.ID]; done {
			continue
		}
		status := sla.Evaluate(ticket, now)
		if !status.Expired() {
			continue
		}
		m.reported[ticket.ID] = struct{}{}
		reported++
		m.metrics.SLABreached(string(ticket.Priority))
		m.logger.Warn("ticket breached sla",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("ticket_number", ticket.TicketNumber),
			zap.String("priority", string(ticket.Priority)),
			zap.Time("deadline", status.Deadline))
		if m.dispatcher == nil {
			continue
		}
		event := events.NewEvent(events.EventTicketSLABreached, ticket, nil, now, events.TicketSLABreachedPayload{
			Priority:     ticket.Priority,
			Deadline:     status.Deadline,
			AssignedToID: ticket.AssignedToID,
		})
		if err := m.dispatcher.Publish(ctx, event); err != nil {
			m.logger.Warn("sla breach handler failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	// Closed tickets leave the set so a reopened, still overdue ticket is reported again.
	for id := range m.reported {
		if _, ok := open[id]; !ok {
			delete(m.reported, id)
		}
	}
	return reported, nil
}
