package main

import (
	"github.com/spf13/cobra"

	"github.com/dusk-indust/swiftalign/internal/config"
	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/dusk-indust/swiftalign/internal/tuning"
)

func newTuningCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "tuning",
		Short: "Print the effective parameter tuning table",
		Long: `Print the tuning table used to pick alignment parameters from the
divergence score. The output is a valid table file: edit it and pass it back
with --tuning-table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			table, err := tuning.LoadTable(cfg.TuningTable)
			if err != nil {
				return err
			}

			f := tuning.Format(format)
			if f != tuning.FormatYAML && f != tuning.FormatTOML {
				return msa.InvalidConfig("tuning", "unsupported table format %q (want yaml or toml)", format)
			}
			return table.Encode(cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVar(&format, "format", string(tuning.FormatYAML), "table format: yaml or toml")
	return cmd
}
