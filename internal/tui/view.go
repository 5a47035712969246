package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/flotilla-run/flotilla/internal/batch"
	"github.com/flotilla-run/flotilla/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	title := titleStyle.Render(fmt.Sprintf("Flotilla • %s", m.title()))
	sections = append(sections, title)

	progress := components.NewProgress(m.total).View(m.done)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	entries := components.NewTaskList(m.order, m.tasks).Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Tasks"))
		sections = append(sections, renderTaskEntries(entries))
	}

	summary := components.NewSummary(m.summaryData()).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderTaskEntries(entries []components.TaskStatus) string {
	var lines []string
	for _, entry := range entries {
		line := fmt.Sprintf(" %s %3d %s", StatusIcon(entry.Status), entry.OrderID, entry.TaskID)
		if entry.Status == batch.StatusRunning && entry.Wave > 0 {
			line = fmt.Sprintf("%s (wave %d)", line, entry.Wave)
		}
		if entry.Err != nil {
			line = fmt.Sprintf("%s: %s", line, entry.Err)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) title() string {
	if strings.TrimSpace(m.batchID) != "" {
		return m.batchID
	}
	return "Batch"
}

func (m Model) summaryData() components.SummaryData {
	data := components.SummaryData{
		Total:     m.total,
		Done:      m.done,
		Finished:  m.finished,
		Cancelled: m.cancelled,
		State:     m.state,
	}
	for _, id := range m.order {
		switch m.tasks[id].Status {
		case batch.StatusFailed:
			data.Failed++
		case batch.StatusTimedOut:
			data.TimedOut++
		case batch.StatusSkipped:
			data.Skipped++
		}
	}
	return data
}

// StatusIcon returns the glyph representing a task status.
func StatusIcon(status batch.Status) string {
	switch status {
	case batch.StatusSuccess:
		return successStyle.Render("✓")
	case batch.StatusRunning:
		return runningStyle.Render("⏳")
	case batch.StatusFailed:
		return failureStyle.Render("✗")
	case batch.StatusTimedOut:
		return timedOutStyle.Render("⏱")
	case batch.StatusSkipped:
		return skippedStyle.Render("⊘")
	default:
		return pendingStyle.Render("…")
	}
}
