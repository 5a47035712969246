package task

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/logger"
	"github.com/flotilla-run/flotilla/internal/protocol"
	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

// Execution runs one command across every configured host. Hosts run
// concurrently; a failing host never cancels its siblings, and the first
// failure becomes the task's error once all hosts have finished.
type Execution struct {
	ID   string
	Spec *config.ExecutionSpec
	Log  *logger.Logger
}

func (t *Execution) Run(ctx context.Context) error {
	factory, err := protocol.Get(t.Spec.Protocol.Name)
	if err != nil {
		return flotillaerrors.NewTaskError(t.ID, err)
	}

	var group errgroup.Group
	for _, host := range t.Spec.Hosts {
		host := host
		group.Go(func() error {
			log := t.Log.WithFields(map[string]any{"task": t.ID, "host": host})

			cmdr, err := factory.Commander(ctx, host, t.Spec.Protocol, log)
			if err != nil {
				log.Error(err, "cannot reach host")
				return err
			}
			defer cmdr.Close()

			if err := cmdr.Exec(ctx, t.Spec.Directory, t.Spec.Command); err != nil {
				log.Error(err, "command failed")
				return err
			}

			log.Info("command succeeded")
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return flotillaerrors.NewTaskError(t.ID, err)
	}
	return nil
}
