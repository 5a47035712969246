package task

import (
	"context"
	"fmt"
	"time"

	"github.com/flotilla-run/flotilla/internal/batch"
	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/journal"
	"github.com/flotilla-run/flotilla/internal/logger"
	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

// Batch composes other tasks into a dependency-ordered child run with its
// own journal artifacts. A dispatched batch always runs fresh; resume
// seeding happens only at the invocation's top level.
type Batch struct {
	ID      string
	Tasks   []*batch.Task
	Journal string
	RunID   string
	Log     *logger.Logger
}

func (b *Builder) buildBatch(ctx context.Context, def *config.Definition, depth int) (batch.Handler, error) {
	tasks, err := b.batchTasks(ctx, def, depth)
	if err != nil {
		return nil, err
	}

	return &Batch{
		ID:      def.ID,
		Tasks:   tasks,
		Journal: b.journalRoot,
		RunID:   b.runID,
		Log:     b.log,
	}, nil
}

// BatchTasks builds the runnable task set for a batch definition, loading
// every referenced task and constructing its handler.
func (b *Builder) BatchTasks(ctx context.Context, def *config.Definition) ([]*batch.Task, error) {
	if def.Batch == nil {
		return nil, flotillaerrors.NewValidationError(def.ID, "batch configuration missing", nil)
	}
	return b.batchTasks(ctx, def, 0)
}

func (b *Builder) batchTasks(ctx context.Context, def *config.Definition, depth int) ([]*batch.Task, error) {
	entries := def.Batch.Tasks
	tasks := make([]*batch.Task, 0, len(entries))
	for _, entry := range entries {
		childDef, err := b.loader.LoadTask(ctx, entry.TaskID)
		if err != nil {
			return nil, err
		}
		handler, err := b.build(ctx, childDef, depth+1)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, &batch.Task{
			OrderID:        entry.OrderID,
			TaskID:         entry.TaskID,
			Dependencies:   entry.Dependencies,
			Timeout:        time.Duration(entry.Timeout) * time.Second,
			ContinueOnFail: entry.ContinueOnFail,
			RetryOnRerun:   entry.RetryOnRerun,
			Handler:        handler,
		})
	}

	if err := batch.ValidateGraph(tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (t *Batch) Run(ctx context.Context) error {
	rec, err := journal.NewFile(t.Journal, t.ID, t.RunID, t.Log)
	if err != nil {
		return flotillaerrors.NewTaskError(t.ID, err)
	}

	sched, err := batch.NewScheduler(batch.Options{
		BatchID:  t.ID,
		RunID:    t.RunID,
		Tasks:    t.Tasks,
		Recorder: rec,
		Logger:   t.Log,
	})
	if err != nil {
		_ = rec.Close(false)
		return flotillaerrors.NewTaskError(t.ID, err)
	}

	summary, err := sched.Run(ctx)
	if err != nil {
		_ = rec.Close(false)
		return flotillaerrors.NewTaskError(t.ID, err)
	}

	success := summary.State == batch.StateCompletedSuccess
	if cerr := rec.Close(success); cerr != nil {
		return flotillaerrors.NewTaskError(t.ID, cerr)
	}
	if !success {
		return flotillaerrors.NewTaskError(t.ID, fmt.Errorf("completed with failures"))
	}
	return nil
}
