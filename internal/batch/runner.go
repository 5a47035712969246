package batch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// teardownGrace bounds how long the runner waits for a handler to unwind
// after its context is cancelled before reporting the terminal status anyway.
const teardownGrace = 500 * time.Millisecond

// runTask executes one task under its deadline and maps the outcome to a
// terminal status. Cancelling the run context is the kill signal for the
// handler's underlying work; handlers must stop what they started when it
// fires.
func (s *Scheduler) runTask(ctx context.Context, t *Task) (Status, error) {
	if t.Handler == nil {
		return StatusFailed, fmt.Errorf("task %s has no handler bound", t.TaskID)
	}

	timeout := t.deadline()
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- t.Handler.Run(runCtx)
	}()

	select {
	case err := <-done:
		if err == nil {
			return StatusSuccess, nil
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return StatusTimedOut, err
		}
		return StatusFailed, err
	case <-runCtx.Done():
	}

	// The deadline fired, or the whole run was cancelled, while the handler
	// was still working. Give it a short window to tear down so its error
	// detail can be kept; after that the status stands regardless.
	log := s.log.ForTask(t.OrderID, t.TaskID)
	var detail error
	select {
	case detail = <-done:
	case <-time.After(teardownGrace):
		go func() {
			<-done
			log.Debug("handler returned after forced termination")
		}()
		log.Warn("handler did not stop within the teardown grace window")
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		if detail == nil {
			detail = fmt.Errorf("deadline of %s exceeded", timeout)
		}
		return StatusTimedOut, detail
	}
	if detail == nil {
		detail = runCtx.Err()
	}
	return StatusFailed, detail
}
