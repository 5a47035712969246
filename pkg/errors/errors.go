package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ParseError represents a JSON or YAML parsing failure with optional line
// metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures task definition and batch graph validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TaskError represents a runtime failure while running a task. TaskID is the
// configured task name, not a batch order id.
type TaskError struct {
	TaskID string
	Err    error
}

// NewTaskError constructs a TaskError.
func NewTaskError(taskID string, err error) error {
	return &TaskError{TaskID: taskID, Err: err}
}

func (e *TaskError) Error() string {
	if e == nil {
		return ""
	}
	if e.TaskID != "" {
		return fmt.Sprintf("task %s failed: %v", e.TaskID, e.Err)
	}
	return fmt.Sprintf("task failed: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *TaskError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ProtocolError indicates issues within protocol handler lookup, connection
// setup or a remote operation.
type ProtocolError struct {
	Protocol string
	Message  string
	Err      error
}

// NewProtocolError constructs a ProtocolError for the given protocol name.
func NewProtocolError(protocol string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ProtocolError{Protocol: protocol, Message: message, Err: err}
}

func (e *ProtocolError) Error() string {
	if e == nil {
		return ""
	}
	if e.Protocol != "" {
		return fmt.Sprintf("protocol error [%s]: %s", e.Protocol, e.Message)
	}
	return fmt.Sprintf("protocol error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ProtocolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StuckGraphError is raised when a wave computation produces no eligible
// tasks while non-terminal tasks remain. It is distinct from a task failure:
// the dependency graph itself cannot make progress.
type StuckGraphError struct {
	BatchID string
	Pending []int
}

// NewStuckGraphError constructs a StuckGraphError listing the order ids that
// can never become eligible.
func NewStuckGraphError(batchID string, pending []int) error {
	ids := append([]int(nil), pending...)
	sort.Ints(ids)
	return &StuckGraphError{BatchID: batchID, Pending: ids}
}

func (e *StuckGraphError) Error() string {
	if e == nil {
		return ""
	}
	ids := make([]string, 0, len(e.Pending))
	for _, id := range e.Pending {
		ids = append(ids, fmt.Sprintf("%d", id))
	}
	return fmt.Sprintf("batch %s is stuck: no eligible tasks remain for order ids [%s]", e.BatchID, strings.Join(ids, ", "))
}
