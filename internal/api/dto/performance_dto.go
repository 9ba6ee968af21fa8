package dto

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AgentPerformanceResponse row.
type AgentPerformanceResponse struct {
	AgentID                int64   `json:"agent_id"`
	Name                   string  `json:"name"`
	TicketsResolved        int     `json:"tickets_resolved"`
	AverageResolutionHours float64 `json:"average_resolution_hours"`
	SLAComplianceRate      int     `json:"sla_compliance_rate"`
}

// PriorityPerformanceResponse row.
type PriorityPerformanceResponse struct {
	Priority          domain.TicketPriority `json:"priority"`
	TicketsResolved   int                   `json:"tickets_resolved"`
	SLAComplianceRate int                   `json:"sla_compliance_rate"`
}

// TicketStatsResponse counts tickets per status.
type TicketStatsResponse struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	OnHold     int `json:"on_hold"`
	Closed     int `json:"closed"`
}

func NewAgentPerformanceResponses(rows []service.AgentPerformance) []AgentPerformanceResponse {
	resp := make([]AgentPerformanceResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, AgentPerformanceResponse{
			AgentID:                r.AgentID,
			Name:                   r.Name,
			TicketsResolved:        r.TicketsResolved,
			AverageResolutionHours: r.AverageResolutionHours,
			SLAComplianceRate:      r.SLAComplianceRate,
		})
	}
	return resp
}

func NewPriorityPerformanceResponses(rows []service.PriorityPerformance) []PriorityPerformanceResponse {
	resp := make([]PriorityPerformanceResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, PriorityPerformanceResponse{
			Priority:          r.Priority,
			TicketsResolved:   r.TicketsResolved,
			SLAComplianceRate: r.SLAComplianceRate,
		})
	}
	return resp
}

func NewTicketStatsResponse(stats service.TicketStats) TicketStatsResponse {
	return TicketStatsResponse{
		Total:      stats.Total,
		Open:       stats.ByStatus[domain.TicketStatusOpen],
		InProgress: stats.ByStatus[domain.TicketStatusInProgress],
		OnHold:     stats.ByStatus[domain.TicketStatusOnHold],
		Closed:     stats.ByStatus[domain.TicketStatusClosed],
	}
}
