package task

import (
	"context"
	"fmt"

	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/logger"
	"github.com/flotilla-run/flotilla/internal/protocol"
	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

// Transfer picks up files matching the source pattern and delivers each one
// to every destination. A transfer with no destinations is a source
// existence check: it succeeds when at least one file matches. Matching zero
// files is always a failure.
type Transfer struct {
	ID   string
	Spec *config.TransferSpec
	Log  *logger.Logger
}

func (t *Transfer) Run(ctx context.Context) (err error) {
	log := t.Log.WithFields(map[string]any{"task": t.ID})

	factory, err := protocol.Get(t.Spec.Source.Protocol.Name)
	if err != nil {
		return flotillaerrors.NewTaskError(t.ID, err)
	}

	src, err := factory.Source(ctx, t.Spec.Source, log)
	if err != nil {
		return flotillaerrors.NewTaskError(t.ID, err)
	}
	defer src.Close()

	names, err := src.List(ctx)
	if err != nil {
		return flotillaerrors.NewTaskError(t.ID, err)
	}
	if len(names) == 0 {
		return flotillaerrors.NewTaskError(t.ID,
			fmt.Errorf("no files matching %q under %s", t.Spec.Source.FileRegex, t.Spec.Source.Directory))
	}
	log.WithFields(map[string]any{"files": len(names)}).Info("source files picked up")

	// Destinations are closed on every path: for connection-backed protocols
	// that releases the link, for flush-on-close protocols it delivers what
	// was stored. Close failures fail the task when nothing else already has.
	var dests []protocol.Destination
	defer func() {
		for _, dest := range dests {
			if cerr := dest.Close(); cerr != nil && err == nil {
				err = flotillaerrors.NewTaskError(t.ID, cerr)
			}
		}
	}()

	for _, spec := range t.Spec.Destinations {
		df, derr := protocol.Get(spec.Protocol.Name)
		if derr != nil {
			return flotillaerrors.NewTaskError(t.ID, derr)
		}
		dest, derr := df.Destination(ctx, spec, log)
		if derr != nil {
			return flotillaerrors.NewTaskError(t.ID, derr)
		}
		dests = append(dests, dest)
	}

	for _, name := range names {
		for _, dest := range dests {
			if cerr := copyOne(ctx, src, dest, name); cerr != nil {
				return flotillaerrors.NewTaskError(t.ID, cerr)
			}
		}
		log.WithFields(map[string]any{"file": name}).Debug("file delivered")
	}

	return nil
}

// copyOne re-opens the source file per destination so every destination gets
// a complete stream.
func copyOne(ctx context.Context, src protocol.Source, dest protocol.Destination, name string) error {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return err
	}
	defer rc.Close()

	return dest.Store(ctx, name, rc)
}
