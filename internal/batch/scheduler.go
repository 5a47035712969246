package batch

import (
	"context"
	"sync"
	"time"

	"github.com/flotilla-run/flotilla/internal/logger"
	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

// State is the scheduler lifecycle position.
type State string

const (
	StateInitializing     State = "INITIALIZING"
	StateRunning          State = "RUNNING"
	StateCompletedSuccess State = "COMPLETED_SUCCESS"
	StateCompletedFailure State = "COMPLETED_FAILURE"
)

// Options configures a Scheduler for one batch run.
type Options struct {
	// BatchID names the batch, used in diagnostics and stuck-graph errors.
	BatchID string
	// RunID is the correlation id for this invocation.
	RunID string
	// Tasks is the resolved task set forming the dependency graph.
	Tasks []*Task
	// Prior holds the statuses reconstructed from the previous run's records.
	// Nil or empty means a fresh run.
	Prior map[int]Status
	// Recorder receives every status transition synchronously. Optional.
	Recorder StatusRecorder
	// Logger receives run telemetry. Optional.
	Logger *logger.Logger
	// OnEvent observes transitions, called after each recorded status change.
	// Optional.
	OnEvent func(Event)
}

// Summary is the aggregate outcome of one batch run.
type Summary struct {
	State    State
	Statuses map[int]Status
	Waves    int
	Duration time.Duration
}

// Scheduler drives a batch through the wave loop: compute skip cascades,
// ask the resolver for the next wave, dispatch it concurrently, wait for the
// wave barrier, repeat until every task is terminal.
type Scheduler struct {
	batchID  string
	runID    string
	tasks    []*Task
	byOrder  map[int]*Task
	prior    map[int]Status
	recorder StatusRecorder
	log      *logger.Logger
	onEvent  func(Event)

	mu       sync.Mutex
	state    State
	statuses map[int]Status
}

// NewScheduler validates the batch graph and prepares a scheduler. A
// validation error means the batch is misconfigured and nothing may run.
func NewScheduler(opts Options) (*Scheduler, error) {
	if err := ValidateGraph(opts.Tasks); err != nil {
		return nil, err
	}

	s := &Scheduler{
		batchID:  opts.BatchID,
		runID:    opts.RunID,
		tasks:    opts.Tasks,
		byOrder:  make(map[int]*Task, len(opts.Tasks)),
		prior:    opts.Prior,
		recorder: opts.Recorder,
		log:      opts.Logger.ForBatch(opts.BatchID, opts.RunID),
		onEvent:  opts.OnEvent,
		state:    StateInitializing,
		statuses: make(map[int]Status, len(opts.Tasks)),
	}
	for _, t := range opts.Tasks {
		s.byOrder[t.OrderID] = t
	}
	return s, nil
}

// State returns the current lifecycle position.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Statuses returns a copy of the status table.
func (s *Scheduler) Statuses() map[int]Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]Status, len(s.statuses))
	for id, st := range s.statuses {
		out[id] = st
	}
	return out
}

// Run executes the batch to completion. Ordinary task failures do not produce
// an error here; they surface through Summary.State. The returned error is
// reserved for the scheduler itself being unable to proceed.
func (s *Scheduler) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	s.setState(StateRunning)
	s.seed()

	r := newResolver(s.tasks)
	waves := 0

	for {
		for _, id := range r.cascade(s.statuses) {
			s.transition(s.taskByOrder(id), StatusSkipped, waves, nil)
		}

		wave := r.nextWave(s.statuses)
		if len(wave) == 0 {
			if stuck := r.pending(s.statuses); len(stuck) > 0 {
				s.setState(StateCompletedFailure)
				err := flotillaerrors.NewStuckGraphError(s.batchID, stuck)
				s.log.Error(err, "batch cannot make progress")
				return s.summary(start, waves), err
			}
			break
		}

		waves++
		s.dispatch(ctx, wave, waves)
	}

	final := StateCompletedSuccess
	for _, st := range s.statuses {
		if st != StatusSuccess {
			final = StateCompletedFailure
			break
		}
	}
	s.setState(final)
	s.log.WithFields(map[string]any{"state": final, "waves": waves}).Info("batch finished")
	return s.summary(start, waves), nil
}

// Waves computes the dispatch plan assuming every task succeeds. No handlers
// run and nothing is recorded; this is the no-dispatch validation mode.
func (s *Scheduler) Waves() ([][]int, error) {
	statuses := make(map[int]Status, len(s.tasks))
	for _, t := range s.tasks {
		statuses[t.OrderID] = StatusPending
	}

	r := newResolver(s.tasks)
	var waves [][]int
	for {
		wave := r.nextWave(statuses)
		if len(wave) == 0 {
			if stuck := r.pending(statuses); len(stuck) > 0 {
				return waves, flotillaerrors.NewStuckGraphError(s.batchID, stuck)
			}
			return waves, nil
		}
		waves = append(waves, wave)
		for _, id := range wave {
			statuses[id] = StatusSuccess
		}
	}
}

// seed builds the initial status table from the prior run. A prior success is
// frozen terminal unless the task asks to retry on rerun; every other prior
// status means the task runs again.
func (s *Scheduler) seed() {
	for _, t := range s.tasks {
		if s.prior[t.OrderID] == StatusSuccess && !t.RetryOnRerun {
			s.mu.Lock()
			s.statuses[t.OrderID] = StatusSuccess
			s.mu.Unlock()
			// Re-record the carried success so this run's records are a
			// complete picture on their own.
			s.transition(t, StatusSuccess, 0, nil)
			continue
		}
		s.mu.Lock()
		s.statuses[t.OrderID] = StatusPending
		s.mu.Unlock()
	}
}

// dispatch runs one wave concurrently and blocks until every task in it has
// reached a terminal status. Later waves may depend on any task here, so the
// barrier is unconditional.
func (s *Scheduler) dispatch(ctx context.Context, wave []int, waveNum int) {
	var wg sync.WaitGroup
	for _, id := range wave {
		t := s.taskByOrder(id)
		s.transition(t, StatusRunning, waveNum, nil)

		wg.Add(1)
		go func(t *Task) {
			defer wg.Done()
			status, err := s.runTask(ctx, t)
			s.transition(t, status, waveNum, err)
		}(t)
	}
	wg.Wait()
}

// transition applies one status change: status table, synchronous record,
// event hook, log line.
func (s *Scheduler) transition(t *Task, status Status, wave int, cause error) {
	s.mu.Lock()
	s.statuses[t.OrderID] = status
	s.mu.Unlock()

	log := s.log.ForTask(t.OrderID, t.TaskID)
	if s.recorder != nil {
		if err := s.recorder.Record(t.OrderID, t.TaskID, status); err != nil {
			log.Error(err, "failed to append status record")
		}
	}

	switch status {
	case StatusRunning:
		log.Info("task dispatched")
	case StatusSuccess:
		if wave == 0 {
			log.Info("prior success carried forward")
		} else {
			log.Info("task succeeded")
		}
	case StatusSkipped:
		log.Warn("task skipped: upstream failure blocks it")
	case StatusFailed:
		log.Error(cause, "task failed")
	case StatusTimedOut:
		log.Error(cause, "task timed out")
	}

	if s.onEvent != nil {
		s.onEvent(Event{OrderID: t.OrderID, TaskID: t.TaskID, Status: status, Wave: wave, Err: cause})
	}
}

func (s *Scheduler) taskByOrder(id int) *Task {
	return s.byOrder[id]
}

func (s *Scheduler) summary(start time.Time, waves int) *Summary {
	return &Summary{
		State:    s.State(),
		Statuses: s.Statuses(),
		Waves:    waves,
		Duration: time.Since(start),
	}
}
