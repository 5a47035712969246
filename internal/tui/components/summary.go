package components

import (
	"fmt"
	"strings"

	"github.com/flotilla-run/flotilla/internal/batch"
)

// SummaryData aggregates counts for rendering the end-of-run summary.
type SummaryData struct {
	Total     int
	Done      int
	Failed    int
	TimedOut  int
	Skipped   int
	Finished  bool
	Cancelled bool
	State     batch.State
}

// Summary renders a textual run summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	if s.data.Total > 0 {
		lines = append(lines, fmt.Sprintf("Tasks: %d/%d finished", s.data.Done, s.data.Total))
	}
	if s.data.Failed > 0 {
		lines = append(lines, fmt.Sprintf("Failed: %d", s.data.Failed))
	}
	if s.data.TimedOut > 0 {
		lines = append(lines, fmt.Sprintf("Timed out: %d", s.data.TimedOut))
	}
	if s.data.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("Skipped: %d", s.data.Skipped))
	}

	switch {
	case s.data.Cancelled:
		lines = append(lines, "Run cancelled")
	case s.data.Finished && s.data.State == batch.StateCompletedSuccess:
		lines = append(lines, "Batch completed successfully")
	case s.data.Finished:
		lines = append(lines, "Batch completed with failures")
	}

	return strings.Join(lines, "\n")
}
