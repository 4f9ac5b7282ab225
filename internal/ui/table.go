package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table Styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent).
		Align(lipgloss.Center)

	TableWarningStyle = lipgloss.NewStyle().Foreground(ColorWarn)
	TableSuccessStyle = lipgloss.NewStyle().Foreground(ColorPass)
	TableHintStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	TableBorderStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
)

// BatchRow is one company's outcome from a snapshot or seed run, shaped
// for console display rather than JSON.
type BatchRow struct {
	Company string
	OK      bool
	Added   int
	NodeMs  int64
	Error   string
}

// RenderBatchTable draws a bordered company/status/added/ms table, with
// failing rows picked out in the warning color. Colors are skipped when
// useColor is false so piped output stays plain text.
func RenderBatchTable(rows []BatchRow, width int, useColor bool) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Width(width).
		Headers("COMPANY", "STATUS", "ADDED", "MS", "ERROR")

	for _, r := range rows {
		status := "ok"
		ms := strconv.FormatInt(r.NodeMs, 10)
		added := strconv.Itoa(r.Added)
		if !r.OK {
			status = "fail"
			added = "-"
		}
		t.Row(r.Company, status, added, ms, r.Error)
	}

	if !useColor {
		return t.Render()
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return TableHeaderStyle
		}
		if row-1 < 0 || row-1 >= len(rows) {
			return lipgloss.NewStyle()
		}
		if rows[row-1].OK {
			if col == 1 {
				return TableSuccessStyle
			}
			return lipgloss.NewStyle()
		}
		return TableWarningStyle
	})
	return t.Render()
}

// RenderQueueStats draws a two-column status/count table for the
// `jobwatch queue stats` subcommand.
func RenderQueueStats(title string, stats map[string]int64, statuses []string, width int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Width(width).
		Headers(title, "COUNT")

	for _, status := range statuses {
		t.Row(status, fmt.Sprintf("%d", stats[status]))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return TableHeaderStyle
		}
		return lipgloss.NewStyle()
	})
	return t.Render()
}
