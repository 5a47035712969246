package batch

import (
	"context"
	"sync"
	"time"
)

// stubHandler counts invocations and optionally delays or fails.
type stubHandler struct {
	mu    sync.Mutex
	runs  int
	delay time.Duration
	err   error
}

func (h *stubHandler) Run(ctx context.Context) error {
	h.mu.Lock()
	h.runs++
	h.mu.Unlock()

	if h.delay > 0 {
		select {
		case <-time.After(h.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return h.err
}

func (h *stubHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runs
}

// recordedStatus is one captured status transition.
type recordedStatus struct {
	orderID int
	taskID  string
	status  Status
}

// recordSink implements StatusRecorder in memory for assertions.
type recordSink struct {
	mu      sync.Mutex
	records []recordedStatus
}

func (r *recordSink) Record(orderID int, taskID string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, recordedStatus{orderID: orderID, taskID: taskID, status: status})
	return nil
}

func (r *recordSink) all() []recordedStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedStatus(nil), r.records...)
}

func (r *recordSink) statusesFor(orderID int) []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Status
	for _, rec := range r.records {
		if rec.orderID == orderID {
			out = append(out, rec.status)
		}
	}
	return out
}

func chainTasks(handlers map[int]*stubHandler, length int) []*Task {
	tasks := make([]*Task, 0, length)
	for i := 1; i <= length; i++ {
		var deps []int
		if i > 1 {
			deps = []int{i - 1}
		}
		tasks = append(tasks, &Task{
			OrderID:      i,
			TaskID:       taskName(i),
			Dependencies: deps,
			Handler:      handlers[i],
		})
	}
	return tasks
}

func taskName(orderID int) string {
	names := []string{"", "fetch", "unpack", "load", "sweep", "report", "archive", "notify"}
	if orderID < len(names) {
		return names[orderID]
	}
	return "task"
}
