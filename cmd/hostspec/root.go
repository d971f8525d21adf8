package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/hostspec/internal/config"
	"github.com/alexisbeaulieu97/hostspec/internal/logger"
	"github.com/alexisbeaulieu97/hostspec/internal/report"
)

type rootFlags struct {
	verbose bool
	envFile string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "hostspec",
		Short:         "hostspec verifies that a provisioned host matches its declared state",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Load environment variables from this file (default .env when present)")

	cmd.AddCommand(newVerifyCmd(flags))
	cmd.AddCommand(newListCmd(flags))
	cmd.AddCommand(newValidateCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadRules loads the environment file then parses and builds the rule file.
func loadRules(flags *rootFlags, path string, opts config.BuildOptions) (*config.Loaded, error) {
	if err := config.LoadEnv(flags.envFile); err != nil {
		return nil, newCommandError("load environment", flags.envFile, err, "Check the --env-file path.")
	}
	return config.Load(path, opts)
}

func newLogger(flags *rootFlags, json bool) (*logger.Logger, error) {
	level := "info"
	if flags.verbose {
		level = "debug"
	}
	return logger.New(logger.Options{
		Level:         level,
		HumanReadable: !json,
		NoColor:       !report.ColorEnabled(os.Stderr),
	})
}
