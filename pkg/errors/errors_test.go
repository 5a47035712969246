package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("batch.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "batch.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "batch.yaml")
}

func TestValidationErrorAggregatesFields(t *testing.T) {
	t.Parallel()

	err := NewValidationError("tasks[1].dependencies", "references unknown order id", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "tasks[1].dependencies", validationErr.Field)
	require.Contains(t, validationErr.Message, "references unknown order id")
}

func TestTaskErrorIncludesTaskContext(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("exit status 1")
	err := NewTaskError("sweep-logs", underlying)

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	require.Equal(t, "sweep-logs", taskErr.TaskID)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestProtocolErrorIncludesProtocolName(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("connection refused")
	err := NewProtocolError("ssh", underlying)

	var protocolErr *ProtocolError
	require.ErrorAs(t, err, &protocolErr)
	require.Equal(t, "ssh", protocolErr.Protocol)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestStuckGraphErrorSortsPendingIDs(t *testing.T) {
	t.Parallel()

	err := NewStuckGraphError("nightly", []int{7, 2, 5})

	var stuckErr *StuckGraphError
	require.ErrorAs(t, err, &stuckErr)
	require.Equal(t, "nightly", stuckErr.BatchID)
	require.Equal(t, []int{2, 5, 7}, stuckErr.Pending)
	require.Contains(t, err.Error(), "[2, 5, 7]")
}
