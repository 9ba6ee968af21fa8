package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/report"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// PerformanceHandler serves staff reporting endpoints.
type PerformanceHandler struct {
	service *service.PerformanceService
	now     func() time.Time
}

// NewPerformanceHandler constructs handler.
func NewPerformanceHandler(performance *service.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{service: performance, now: time.Now}
}

// Agents GET /api/performance/agents.
func (h *PerformanceHandler) Agents(c *fiber.Ctx) error {
	rows, err := h.service.AgentPerformance(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentPerformanceResponses(rows)})
}

// Priorities GET /api/performance/priorities.
func (h *PerformanceHandler) Priorities(c *fiber.Ctx) error {
	rows, err := h.service.PriorityPerformance(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPriorityPerformanceResponses(rows)})
}

// Export GET /api/performance/export streams both reports as a workbook.
func (h *PerformanceHandler) Export(c *fiber.Ctx) error {
	ctx := c.UserContext()
	agents, err := h.service.AgentPerformance(ctx)
	if err != nil {
		return err
	}
	priorities, err := h.service.PriorityPerformance(ctx)
	if err != nil {
		return err
	}
	buf, err := report.WritePerformanceWorkbook(agents, priorities)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, report.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", report.Filename(h.now())))
	return c.Send(buf.Bytes())
}
