package main

import (
	"github.com/spf13/cobra"

	"github.com/flotilla-run/flotilla/internal/logger"
)

type rootFlags struct {
	verbose   bool
	configDir string
	logDir    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "flotilla",
		Short:         "Flotilla runs file transfers and remote commands as dependency-ordered batches",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVarP(&flags.configDir, "config-dir", "c", ".", "Config directory holding tasks/ and variables.yaml")
	cmd.PersistentFlags().StringVar(&flags.logDir, "log-dir", "logs", "Directory for run artifacts")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newValidateCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newRootLogger(verbose bool) (*logger.Logger, error) {
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Options{Level: level, HumanReadable: true})
}
