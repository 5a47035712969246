// Package task builds runnable handlers from task definitions. The
// definition type selects the handler; batch definitions compose other tasks
// into a child scheduler of their own.
package task

import (
	"context"
	"fmt"

	"github.com/flotilla-run/flotilla/internal/batch"
	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/logger"
	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

// maxBatchDepth caps how deep batches may nest before construction fails,
// guarding definitions that reference themselves.
const maxBatchDepth = 5

// Builder turns loaded definitions into handlers the engine can dispatch.
type Builder struct {
	loader      *config.Loader
	journalRoot string
	runID       string
	log         *logger.Logger
}

// NewBuilder wires a builder over a config loader. journalRoot is where
// nested batches write their own run artifacts.
func NewBuilder(loader *config.Loader, journalRoot, runID string, log *logger.Logger) *Builder {
	return &Builder{
		loader:      loader,
		journalRoot: journalRoot,
		runID:       runID,
		log:         log,
	}
}

// Build constructs the handler for a definition.
func (b *Builder) Build(ctx context.Context, def *config.Definition) (batch.Handler, error) {
	return b.build(ctx, def, 0)
}

func (b *Builder) build(ctx context.Context, def *config.Definition, depth int) (batch.Handler, error) {
	switch def.Type {
	case "transfer":
		if def.Transfer == nil {
			return nil, flotillaerrors.NewValidationError(def.ID, "transfer configuration missing", nil)
		}
		return &Transfer{ID: def.ID, Spec: def.Transfer, Log: b.log}, nil
	case "execution":
		if def.Execution == nil {
			return nil, flotillaerrors.NewValidationError(def.ID, "execution configuration missing", nil)
		}
		return &Execution{ID: def.ID, Spec: def.Execution, Log: b.log}, nil
	case "batch":
		if def.Batch == nil {
			return nil, flotillaerrors.NewValidationError(def.ID, "batch configuration missing", nil)
		}
		if depth >= maxBatchDepth {
			return nil, flotillaerrors.NewValidationError(def.ID,
				fmt.Sprintf("batches nest deeper than %d levels", maxBatchDepth), nil)
		}
		return b.buildBatch(ctx, def, depth)
	default:
		return nil, flotillaerrors.NewValidationError(def.ID, fmt.Sprintf("unknown task type %q", def.Type), nil)
	}
}
