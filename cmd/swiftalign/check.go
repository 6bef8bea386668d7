package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/swiftalign/internal/backend"
	"github.com/dusk-indust/swiftalign/internal/config"
	"github.com/dusk-indust/swiftalign/internal/logging"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Locate mafft and muscle and report their versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}

			runner := &backend.ExecRunner{Timeout: cfg.Timeout}
			mafft, muscle := backend.NewDetector(locator(cfg), runner, logging.NopLogger()).Detect(cmd.Context())

			out := cmd.OutOrStdout()
			var missing error
			for _, tool := range []backend.Tool{mafft, muscle} {
				fmt.Fprintln(out, tool.String())
				if !tool.Found() && missing == nil {
					missing = tool.Err
				}
			}
			if legacyMuscle(muscle) {
				fmt.Fprintf(out, "warning: MUSCLE %s is a 3.x release; it is run with -in/-out/-refine flags\n", muscle.Version)
			}
			return missing
		},
	}
}
