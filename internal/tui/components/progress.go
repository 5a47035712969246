package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Progress renders how much of the batch has reached a terminal status.
type Progress struct {
	bar   progress.Model
	total int
}

// NewProgress creates a progress component sized for the given task count.
func NewProgress(total int) Progress {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	return Progress{bar: bar, total: total}
}

// View renders the bar for the provided finished count.
func (p Progress) View(finished int) string {
	ratio := 0.0
	if p.total > 0 {
		ratio = math.Min(1.0, float64(finished)/float64(p.total))
	}
	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d/%d", finished, p.total))
	return lipgloss.JoinHorizontal(lipgloss.Left, label, " ", p.bar.ViewAs(ratio))
}
