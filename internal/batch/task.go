// Package batch contains the execution engine: dependency-ordered waves of
// concurrently dispatched tasks, per-task deadlines, and resumable state
// reconstructed from a prior run's status records.
package batch

import (
	"context"
	"time"
)

// DefaultTimeout applies when a task record does not set its own deadline.
const DefaultTimeout = 300 * time.Second

// Status is the per-task lifecycle position within one run.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusRunning  Status = "RUNNING"
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusTimedOut Status = "TIMED_OUT"
	StatusSkipped  Status = "SKIPPED"
)

// Terminal reports whether no further transition can happen for the task.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusTimedOut, StatusSkipped:
		return true
	}
	return false
}

// Failed reports whether the status is a failed run attempt. SKIPPED is not a
// run attempt: the task never started.
func (s Status) Failed() bool {
	return s == StatusFailed || s == StatusTimedOut
}

// ParseStatus maps a serialized token back to a Status.
func ParseStatus(token string) (Status, bool) {
	switch Status(token) {
	case StatusPending, StatusRunning, StatusSuccess, StatusFailed, StatusTimedOut, StatusSkipped:
		return Status(token), true
	}
	return "", false
}

// Handler is the uniform run contract the engine dispatches through. Transfer,
// execution and nested batch work all sit behind it; the engine only observes
// the returned error and the context deadline.
type Handler interface {
	Run(ctx context.Context) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context) error

// Run invokes the wrapped function.
func (f HandlerFunc) Run(ctx context.Context) error { return f(ctx) }

// Task is one node in a batch graph: a resolved unit of work plus the
// scheduling metadata that places it in the dependency order.
type Task struct {
	// OrderID is the graph node identity, unique and positive within a batch.
	OrderID int
	// TaskID names the underlying task definition.
	TaskID string
	// Dependencies lists the order ids that must resolve before this task can
	// become eligible.
	Dependencies []int
	// Timeout bounds one run attempt. Zero means DefaultTimeout.
	Timeout time.Duration
	// ContinueOnFail lets dependents proceed even if this task fails.
	ContinueOnFail bool
	// RetryOnRerun re-executes this task on a resumed run even when the prior
	// run recorded a success.
	RetryOnRerun bool
	// Handler performs the actual work.
	Handler Handler
}

// deadline returns the effective timeout for one run attempt.
func (t *Task) deadline() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return DefaultTimeout
}

// StatusRecorder receives every status transition synchronously, before the
// scheduler moves on. Implementations must make the write durable enough for
// a later process instance to reconstruct the run after a crash.
type StatusRecorder interface {
	Record(orderID int, taskID string, status Status) error
}

// Event describes one observable transition during a run. Wave is the
// dispatch wave the transition belongs to; wave 0 is the seeding phase that
// carries prior successes forward.
type Event struct {
	OrderID int
	TaskID  string
	Status  Status
	Wave    int
	Err     error
}
