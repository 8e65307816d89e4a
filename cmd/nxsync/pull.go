package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/nxsync/internal/app"
)

type pullFlags struct {
	deviceFlags
	dest       string
	noProgress bool
}

func newPullCmd(global *globalFlags) *cobra.Command {
	flags := &pullFlags{}

	cmd := &cobra.Command{
		Use:   "pull <local-file>",
		Short: "Copy a file from a device",
		Long: `Copy a file from the device's file system to <local-file>.

Missing parent directories are created and an existing local file is
replaced.`,
		Example: `  # Back up the startup configuration of leaf1
  nxsync pull backups/leaf1/startup-config --device leaf1 --dest startup-config`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if len(args) == 0 {
				return missingFlagError(cmd, "<local-file>")
			}
			if err := flags.validate(cmd); err != nil {
				return err
			}
			return app.RunPull(cmd.Context(), app.PullOptions{
				CommonOptions: flags.options(global),
				LocalPath:     args[0],
				Dest:          flags.dest,
				NoProgress:    flags.noProgress,
			}, cmd.OutOrStdout())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.dest, "dest", "", "Remote file name (default: local base name)")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Do not draw a progress bar")

	return cmd
}
