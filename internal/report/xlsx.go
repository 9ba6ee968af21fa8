// Package report renders performance reports as spreadsheets.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/helpdesk-service/internal/service"
)

const (
	AgentsSheet     = "Agents"
	PrioritiesSheet = "Priorities"
	ContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	agentHeaders    = []string{"Agent ID", "Agent", "Tickets Resolved", "Avg Resolution (h)", "SLA Compliance (%)"}
	priorityHeaders = []string{"Priority", "Tickets Resolved", "SLA Compliance (%)"}
)

// Filename returns the download name for an export generated at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("performance-%s.xlsx", t.UTC().Format("20060102-1504"))
}

// WritePerformanceWorkbook renders both reports into one workbook with a sheet each.
func WritePerformanceWorkbook(agents []service.AgentPerformance, priorities []service.PriorityPerformance) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	agentRows := make([][]any, 0, len(agents))
	for _, a := range agents {
		agentRows = append(agentRows, []any{a.AgentID, a.Name, a.TicketsResolved, a.AverageResolutionHours, a.SLAComplianceRate})
	}
	priorityRows := make([][]any, 0, len(priorities))
	for _, p := range priorities {
		priorityRows = append(priorityRows, []any{string(p.Priority), p.TicketsResolved, p.SLAComplianceRate})
	}

	if err := f.SetSheetName("Sheet1", AgentsSheet); err != nil {
		return nil, err
	}
	if err := writeSheet(f, AgentsSheet, agentHeaders, agentRows, headerStyle); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(PrioritiesSheet); err != nil {
		return nil, err
	}
	if err := writeSheet(f, PrioritiesSheet, priorityHeaders, priorityRows, headerStyle); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 20)
}
