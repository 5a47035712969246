package journal

import (
	"sync"
	"time"

	"github.com/flotilla-run/flotilla/internal/batch"
)

// Record is one captured status transition.
type Record struct {
	Time    time.Time
	OrderID int
	TaskID  string
	Status  batch.Status
}

// Memory keeps status records in process memory. It backs tests and the
// no-dispatch validation path, which must not touch the artifact directory.
type Memory struct {
	mu      sync.Mutex
	records []Record
}

// NewMemory returns an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{}
}

// Record appends one transition.
func (m *Memory) Record(orderID int, taskID string, status batch.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, Record{Time: time.Now(), OrderID: orderID, TaskID: taskID, Status: status})
	return nil
}

// Records returns a copy of everything recorded so far, in append order.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

// Statuses collapses the records into each task's latest status.
func (m *Memory) Statuses() map[int]batch.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]batch.Status)
	for _, rec := range m.records {
		out[rec.OrderID] = rec.Status
	}
	return out
}
