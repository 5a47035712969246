package components

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flotilla-run/flotilla/internal/batch"
)

func TestTaskListPreservesOrder(t *testing.T) {
	t.Parallel()

	tasks := map[int]TaskStatus{
		1: {OrderID: 1, TaskID: "pickup", Status: batch.StatusSuccess},
		2: {OrderID: 2, TaskID: "restart", Status: batch.StatusRunning},
		5: {OrderID: 5, TaskID: "verify", Status: batch.StatusPending},
	}
	list := NewTaskList([]int{1, 2, 5}, tasks)

	entries := list.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, "pickup", entries[0].TaskID)
	require.Equal(t, "restart", entries[1].TaskID)
	require.Equal(t, "verify", entries[2].TaskID)
}

func TestTaskListEntriesAreACopy(t *testing.T) {
	t.Parallel()

	tasks := map[int]TaskStatus{1: {OrderID: 1, TaskID: "pickup", Status: batch.StatusPending}}
	list := NewTaskList([]int{1}, tasks)

	entries := list.Entries()
	entries[0].TaskID = "mutated"

	require.Equal(t, "pickup", list.Entries()[0].TaskID)
}
