package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/flotilla-run/flotilla/internal/batch"
	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/journal"
	"github.com/flotilla-run/flotilla/internal/logger"
	"github.com/flotilla-run/flotilla/internal/task"
	"github.com/flotilla-run/flotilla/internal/tui"
)

type runOptions struct {
	TaskID         string
	RunID          string
	ResumeDate     string
	ConfigGit      string
	ConfigGitRef   string
	Plain          bool
	Verbose        bool
	ConfigDir      string
	LogDir         string
	NonInteractive bool
	Out            io.Writer
}

var runCmdRunner = runRun

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run <task id>",
		Short: "Run a task or batch, resuming a same-day failed run where possible",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.TaskID = args[0]
			opts.Verbose = root.verbose
			opts.ConfigDir = root.configDir
			opts.LogDir = root.logDir
			opts.NonInteractive = opts.Plain || !term.IsTerminal(int(os.Stdout.Fd()))
			opts.Out = cmd.OutOrStdout()

			return runCmdRunner(opts)
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "Correlation id for this invocation (default: random)")
	cmd.Flags().StringVar(&opts.ResumeDate, "resume-date", "", "Resume-scope date in YYYYMMDD form (default: $"+journal.ResumeDateEnv+" or today)")
	cmd.Flags().StringVar(&opts.ConfigGit, "config-git", "", "Clone the config directory from this git URL before loading")
	cmd.Flags().StringVar(&opts.ConfigGitRef, "config-git-ref", "", "Branch to check out when --config-git is set")
	cmd.Flags().BoolVar(&opts.Plain, "plain", false, "Disable the interactive progress display")

	return cmd
}

func runRun(opts runOptions) error {
	log, err := newRootLogger(opts.Verbose)
	if err != nil {
		return err
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configDir := opts.ConfigDir
	if opts.ConfigGit != "" {
		dir, cleanup, err := config.CloneConfig(ctx, opts.ConfigGit, opts.ConfigGitRef, log)
		if err != nil {
			return err
		}
		defer cleanup()
		configDir = dir
	}

	loader, err := config.NewLoader(ctx, configDir, log)
	if err != nil {
		return err
	}
	def, err := loader.LoadTask(ctx, opts.TaskID)
	if err != nil {
		return err
	}

	builder := task.NewBuilder(loader, opts.LogDir, runID, log)

	// A plain task runs as a one-entry batch so every invocation gets the
	// same journal artifacts and resume behavior.
	var tasks []*batch.Task
	if def.Type == "batch" {
		tasks, err = builder.BatchTasks(ctx, def)
		if err != nil {
			return err
		}
	} else {
		handler, err := builder.Build(ctx, def)
		if err != nil {
			return err
		}
		tasks = []*batch.Task{{OrderID: 1, TaskID: def.ID, Handler: handler}}
	}

	return executeRun(ctx, cancel, opts, def.ID, runID, tasks, log.ForBatch(def.ID, runID))
}

func executeRun(ctx context.Context, cancel context.CancelFunc, opts runOptions, batchID, runID string, tasks []*batch.Task, log *logger.Logger) error {
	date, err := journal.ResolveResumeDate(opts.ResumeDate, time.Now())
	if err != nil {
		return err
	}
	prior, err := journal.ReadPriorRun(opts.LogDir, batchID, date, log)
	if err != nil {
		return err
	}
	if len(prior) > 0 {
		log.WithFields(map[string]any{"date": date, "tasks": len(prior)}).Info("resuming from prior run")
	}

	rec, err := journal.NewFile(opts.LogDir, batchID, runID, log)
	if err != nil {
		return err
	}

	interactive := !opts.NonInteractive
	modelState := tui.NewModel(batchID, tasks)

	var program *tea.Program
	var programErr error
	done := make(chan struct{})
	if interactive {
		program = tea.NewProgram(modelState)
		go func() {
			final, err := program.Run()
			programErr = err
			if m, ok := final.(tui.Model); ok && m.Cancelled() {
				cancel()
			}
			close(done)
		}()
	}

	// Transitions arrive from worker goroutines; only the thread-safe
	// program.Send path may consume them live. The plain path replays the
	// final statuses after the run instead.
	onEvent := func(ev batch.Event) {
		if interactive {
			program.Send(tui.TransitionMsg{Event: ev})
		}
	}

	sched, err := batch.NewScheduler(batch.Options{
		BatchID:  batchID,
		RunID:    runID,
		Tasks:    tasks,
		Prior:    prior,
		Recorder: rec,
		Logger:   log,
		OnEvent:  onEvent,
	})
	if err != nil {
		_ = rec.Close(false)
		if interactive {
			program.Send(tea.QuitMsg{})
			<-done
		}
		return err
	}

	summary, runErr := sched.Run(ctx)
	success := runErr == nil && summary.State == batch.StateCompletedSuccess

	if cerr := rec.Close(success); cerr != nil && runErr == nil {
		runErr = cerr
	}

	if interactive {
		program.Send(tui.DoneMsg{Summary: summary, Err: runErr})
		<-done
		if programErr != nil {
			return programErr
		}
	} else {
		for _, t := range tasks {
			applyMsg(&modelState, tui.TransitionMsg{Event: batch.Event{
				OrderID: t.OrderID,
				TaskID:  t.TaskID,
				Status:  summary.Statuses[t.OrderID],
				Wave:    summary.Waves,
			}})
		}
		applyMsg(&modelState, tui.DoneMsg{Summary: summary, Err: runErr})
		fmt.Fprintln(opts.Out, modelState.View())
	}

	if runErr != nil {
		return runErr
	}
	if !success {
		return fmt.Errorf("batch %s completed with failures", batchID)
	}
	return nil
}

func applyMsg(state *tui.Model, msg tea.Msg) {
	updated, _ := state.Update(msg)
	if m, ok := updated.(tui.Model); ok {
		*state = m
	}
}
