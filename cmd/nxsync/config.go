package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/nxsync/internal/app"
)

func newConfigCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the device inventory",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a default inventory file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := global.config
			if len(args) == 1 {
				path = args[0]
			}
			return app.RunConfigInit(path, cmd.OutOrStdout())
		},
	})

	return cmd
}
