package tui

import (
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/flotilla-run/flotilla/internal/batch"
	"github.com/flotilla-run/flotilla/internal/tui/components"
)

// TransitionMsg carries one scheduler transition into the TUI.
type TransitionMsg struct {
	Event batch.Event
}

// DoneMsg reports that the run finished, successfully or not.
type DoneMsg struct {
	Summary *batch.Summary
	Err     error
}

type tickMsg struct{}

// Model contains the Bubbletea state for a live batch run.
type Model struct {
	batchID string
	tasks   map[int]components.TaskStatus
	order   []int

	total     int
	done      int
	wave      int
	state     batch.State
	err       error
	finished  bool
	cancelled bool
}

// NewModel constructs a TUI model seeded with the batch's task set. Every
// task starts pending; transitions move them forward.
func NewModel(batchID string, tasks []*batch.Task) Model {
	m := Model{
		batchID: batchID,
		tasks:   make(map[int]components.TaskStatus),
		order:   make([]int, 0, len(tasks)),
		state:   batch.StateInitializing,
	}

	for _, t := range tasks {
		if _, exists := m.tasks[t.OrderID]; exists {
			continue
		}
		m.tasks[t.OrderID] = components.TaskStatus{
			OrderID: t.OrderID,
			TaskID:  t.TaskID,
			Status:  batch.StatusPending,
		}
		m.order = append(m.order, t.OrderID)
		m.total++
	}
	sort.Ints(m.order)

	return m
}

// Init starts the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// TotalTasks returns the number of tasks tracked by the model.
func (m Model) TotalTasks() int {
	return m.total
}

// FinishedTasks returns the number of tasks in a terminal status.
func (m Model) FinishedTasks() int {
	return m.done
}

// IsFinished reports whether the run has completed.
func (m Model) IsFinished() bool {
	return m.finished
}

// Cancelled reports whether the user interrupted the run.
func (m Model) Cancelled() bool {
	return m.cancelled
}

// State returns the run's final state once a DoneMsg has arrived.
func (m Model) State() batch.State {
	return m.state
}

// Err returns the fatal error from the run, if any.
func (m Model) Err() error {
	return m.err
}

func (m *Model) ensureTask(orderID int, taskID string) {
	if orderID <= 0 {
		return
	}
	if _, exists := m.tasks[orderID]; !exists {
		m.tasks[orderID] = components.TaskStatus{
			OrderID: orderID,
			TaskID:  taskID,
			Status:  batch.StatusPending,
		}
		m.order = append(m.order, orderID)
		sort.Ints(m.order)
		m.total++
	}
}
