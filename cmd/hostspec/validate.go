package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/hostspec/internal/config"
)

func newValidateCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rules.yaml>",
		Short: "Check a rule file without touching any host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadRules(root, args[0], config.BuildOptions{})
			if err != nil {
				return configFailure("validate", err)
			}

			total := 0
			for _, s := range loaded.Suites {
				total += len(s.Expectations)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✔ %s is valid: %d sets, %d suites, %d expectations\n",
				args[0], len(loaded.Registry.Names()), len(loaded.Suites), total)
			return nil
		},
	}
}
