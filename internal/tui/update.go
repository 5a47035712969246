package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/flotilla-run/flotilla/internal/batch"
)

// Update handles Bubbletea messages and advances model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, nil
	case TransitionMsg:
		ev := msg.Event
		if ev.OrderID <= 0 {
			return m, nil
		}
		m.ensureTask(ev.OrderID, ev.TaskID)

		entry := m.tasks[ev.OrderID]
		wasTerminal := entry.Status.Terminal()
		entry.Status = ev.Status
		entry.Wave = ev.Wave
		entry.Err = ev.Err
		m.tasks[ev.OrderID] = entry

		if ev.Status == batch.StatusRunning {
			m.state = batch.StateRunning
		}
		if ev.Wave > m.wave {
			m.wave = ev.Wave
		}
		if !wasTerminal && ev.Status.Terminal() {
			m.done++
		}
		return m, nil
	case DoneMsg:
		m.finished = true
		if msg.Summary != nil {
			m.state = msg.Summary.State
		}
		m.err = msg.Err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			m.finished = true
			return m, tea.Quit
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
