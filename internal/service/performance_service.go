package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/sla"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AgentPerformance summarizes closed tickets for one agent.
type AgentPerformance struct {
	AgentID                int64
	Name                   string
	TicketsResolved        int
	AverageResolutionHours float64
	SLAComplianceRate      int
}

// PriorityPerformance summarizes closed tickets for one priority.
type PriorityPerformance struct {
	Priority          domain.TicketPriority
	TicketsResolved   int
	SLAComplianceRate int
}

// TicketStats counts tickets per status.
type TicketStats struct {
	Total    int
	ByStatus map[domain.TicketStatus]int
}

// PerformanceService computes read-only reports. It never writes.
type PerformanceService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewPerformanceService constructs the service.
func NewPerformanceService(store repository.Store, logger *zap.Logger) *PerformanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerformanceService{store: store, logger: logger}
}

// AgentPerformance reports every agent, including those with no closed tickets.
func (s *PerformanceService) AgentPerformance(ctx context.Context) ([]AgentPerformance, error) {
	repos := s.store.Repos()
	role := domain.RoleAgent
	agents, err := repos.Users.List(ctx, repository.UserFilter{Role: &role})
	if err != nil {
		return nil, errorutil.NewStoreUnavailable(err)
	}

	result := make([]AgentPerformance, 0, len(agents))
	for _, agent := range agents {
		agentID := agent.ID
		closed, err := repos.Tickets.ListWithFilter(ctx, repository.TicketFilter{
			Statuses:     []domain.TicketStatus{domain.TicketStatusClosed},
			AssignedToID: &agentID,
		})
		if err != nil {
			return nil, errorutil.NewStoreUnavailable(err)
		}
		result = append(result, AgentPerformance{
			AgentID:                agent.ID,
			Name:                   agent.Name,
			TicketsResolved:        len(closed),
			AverageResolutionHours: averageResolutionHours(closed),
			SLAComplianceRate:      complianceRate(closed),
		})
	}
	s.logger.Debug("agent performance computed", zap.Int("agents", len(result)))
	return result, nil
}

// PriorityPerformance reports all four priorities, most urgent first.
func (s *PerformanceService) PriorityPerformance(ctx context.Context) ([]PriorityPerformance, error) {
	repos := s.store.Repos()
	result := make([]PriorityPerformance, 0, len(domain.TicketPriorities))
	for i := len(domain.TicketPriorities) - 1; i >= 0; i-- {
		priority := domain.TicketPriorities[i]
		closed, err := repos.Tickets.ListWithFilter(ctx, repository.TicketFilter{
			Statuses:   []domain.TicketStatus{domain.TicketStatusClosed},
			Priorities: []domain.TicketPriority{priority},
		})
		if err != nil {
			return nil, errorutil.NewStoreUnavailable(err)
		}
		result = append(result, PriorityPerformance{
			Priority:          priority,
			TicketsResolved:   len(closed),
			SLAComplianceRate: complianceRate(closed),
		})
	}
	return result, nil
}

// TicketStats counts tickets per status; every status is present.
func (s *PerformanceService) TicketStats(ctx context.Context) (TicketStats, error) {
	counts, err := s.store.Repos().Tickets.CountByStatus(ctx)
	if err != nil {
		return TicketStats{}, errorutil.NewStoreUnavailable(err)
	}
	stats := TicketStats{ByStatus: make(map[domain.TicketStatus]int, len(domain.TicketStatuses))}
	for _, status := range domain.TicketStatuses {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}
	return stats, nil
}

// complianceRate is 100 when there is nothing to measure.
func complianceRate(closed []domain.Ticket) int {
	if len(closed) == 0 {
		return 100
	}
	within := 0
	for i := range closed {
		if sla.IsWithinSLA(&closed[i]) {
			within++
		}
	}
	return int(math.Round(100 * float64(within) / float64(len(closed))))
}

// averageResolutionHours uses updatedAt as the resolution instant, rounded to one decimal.
func averageResolutionHours(closed []domain.Ticket) float64 {
	if len(closed) == 0 {
		return 0
	}
	var total float64
	for _, ticket := range closed {
		total += ticket.UpdatedAt.Sub(ticket.CreatedAt).Hours()
	}
	return math.Round(total/float64(len(closed))*10) / 10
}
