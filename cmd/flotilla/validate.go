package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flotilla-run/flotilla/internal/batch"
	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/journal"
	"github.com/flotilla-run/flotilla/internal/task"
)

type validateOptions struct {
	TaskID    string
	Verbose   bool
	ConfigDir string
	LogDir    string
}

func newValidateCmd(root *rootFlags) *cobra.Command {
	opts := validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <task id>",
		Short: "Check a definition and report the dispatch plan without running anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.TaskID = args[0]
			opts.Verbose = root.verbose
			opts.ConfigDir = root.configDir
			opts.LogDir = root.logDir

			return runValidate(opts, cmd.OutOrStdout())
		},
	}

	return cmd
}

func runValidate(opts validateOptions, out io.Writer) error {
	log, err := newRootLogger(opts.Verbose)
	if err != nil {
		return err
	}

	ctx := context.Background()
	loader, err := config.NewLoader(ctx, opts.ConfigDir, log)
	if err != nil {
		return err
	}
	def, err := loader.LoadTask(ctx, opts.TaskID)
	if err != nil {
		return err
	}

	if def.Type != "batch" {
		fmt.Fprintf(out, "task %s (%s): configuration valid\n", def.ID, def.Type)
		return nil
	}

	builder := task.NewBuilder(loader, opts.LogDir, "validate", log)
	tasks, err := builder.BatchTasks(ctx, def)
	if err != nil {
		return err
	}

	sched, err := batch.NewScheduler(batch.Options{
		BatchID:  def.ID,
		Tasks:    tasks,
		Recorder: journal.NewMemory(),
		Logger:   log,
	})
	if err != nil {
		return err
	}
	waves, err := sched.Waves()
	if err != nil {
		return err
	}

	byOrder := make(map[int]string, len(tasks))
	for _, t := range tasks {
		byOrder[t.OrderID] = t.TaskID
	}

	fmt.Fprintf(out, "batch %s: %d tasks in %d waves\n", def.ID, len(tasks), len(waves))
	for i, wave := range waves {
		parts := make([]string, 0, len(wave))
		for _, id := range wave {
			parts = append(parts, fmt.Sprintf("%d %s", id, byOrder[id]))
		}
		fmt.Fprintf(out, "  wave %d: %s\n", i+1, strings.Join(parts, ", "))
	}
	return nil
}
