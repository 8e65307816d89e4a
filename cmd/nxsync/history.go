package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tturner/nxsync/internal/app"
)

func newHistoryCmd(global *globalFlags) *cobra.Command {
	var opts app.HistoryOptions

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded transfers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.JSON && opts.CSV {
				return fmt.Errorf("--json and --csv are mutually exclusive")
			}
			opts.ConfigPath = global.config
			return app.RunHistory(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Show at most this many records (0 for all)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print records as JSON")
	cmd.Flags().BoolVar(&opts.CSV, "csv", false, "Print records as CSV")

	return cmd
}
