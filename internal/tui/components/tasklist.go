package components

import (
	"github.com/flotilla-run/flotilla/internal/batch"
)

// TaskStatus is one task's current position in the run, as rendered.
type TaskStatus struct {
	OrderID int
	TaskID  string
	Status  batch.Status
	Wave    int
	Err     error
}

// TaskList renders batch tasks in ascending order-id sequence.
type TaskList struct {
	entries []TaskStatus
}

// NewTaskList constructs a task list component from the model's order and
// status map.
func NewTaskList(order []int, tasks map[int]TaskStatus) TaskList {
	entries := make([]TaskStatus, 0, len(order))
	for _, id := range order {
		entries = append(entries, tasks[id])
	}
	return TaskList{entries: entries}
}

// Entries returns the ordered task entries.
func (l TaskList) Entries() []TaskStatus {
	clone := make([]TaskStatus, len(l.entries))
	copy(clone, l.entries)
	return clone
}
