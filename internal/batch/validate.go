package batch

import (
	"fmt"
	"sort"
	"strings"

	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

// ValidateGraph checks the structural invariants of a batch before any
// dispatch: order ids are positive and unique, dependencies reference order
// ids that exist in the same batch, and the graph contains no cycles. Any
// violation is a configuration error and nothing must run.
func ValidateGraph(tasks []*Task) error {
	if len(tasks) == 0 {
		return flotillaerrors.NewValidationError("tasks", "batch contains no tasks", nil)
	}

	byOrder := make(map[int]*Task, len(tasks))
	for i, t := range tasks {
		if t.OrderID <= 0 {
			return flotillaerrors.NewValidationError(fieldForTask(i, "order_id"), fmt.Sprintf("order id must be positive, got %d", t.OrderID), nil)
		}
		if prev, exists := byOrder[t.OrderID]; exists {
			return flotillaerrors.NewValidationError(fieldForTask(i, "order_id"), fmt.Sprintf("duplicate order id %d shared by %q and %q", t.OrderID, prev.TaskID, t.TaskID), nil)
		}
		byOrder[t.OrderID] = t
	}

	for i, t := range tasks {
		for _, dep := range t.Dependencies {
			if dep == t.OrderID {
				return flotillaerrors.NewValidationError(fieldForTask(i, "dependencies"), fmt.Sprintf("order id %d depends on itself", t.OrderID), nil)
			}
			if _, ok := byOrder[dep]; !ok {
				return flotillaerrors.NewValidationError(fieldForTask(i, "dependencies"), fmt.Sprintf("references unknown order id %d", dep), nil)
			}
		}
	}

	if cycle := detectCycle(byOrder); len(cycle) > 0 {
		parts := make([]string, 0, len(cycle))
		for _, id := range cycle {
			parts = append(parts, fmt.Sprintf("%d", id))
		}
		return flotillaerrors.NewValidationError("tasks", fmt.Sprintf("dependency cycle detected: %s", strings.Join(parts, " -> ")), nil)
	}

	return nil
}

func fieldForTask(index int, field string) string {
	return fmt.Sprintf("tasks[%d].%s", index, field)
}

func detectCycle(tasks map[int]*Task) []int {
	visiting := make(map[int]bool, len(tasks))
	visited := make(map[int]bool, len(tasks))
	var stack []int

	var cycle []int
	var dfs func(int) bool
	dfs = func(node int) bool {
		visiting[node] = true
		stack = append(stack, node)

		for _, dep := range tasks[node].Dependencies {
			if !visited[dep] {
				if visiting[dep] {
					idx := indexOf(stack, dep)
					if idx >= 0 {
						cycle = append([]int{}, stack[idx:]...)
						cycle = append(cycle, dep)
					}
					return true
				}
				if dfs(dep) {
					return true
				}
			}
		}

		visiting[node] = false
		visited[node] = true
		stack = stack[:len(stack)-1]
		return false
	}

	// Deterministic order by ascending order id.
	ids := make([]int, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if visited[id] {
			continue
		}
		if dfs(id) {
			return cycle
		}
	}

	return nil
}

func indexOf(stack []int, target int) int {
	for i, id := range stack {
		if id == target {
			return i
		}
	}
	return -1
}
