package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/nxsync/internal/app"
)

type pushFlags struct {
	deviceFlags
	dest       string
	force      bool
	verify     bool
	noProgress bool
}

func newPushCmd(global *globalFlags) *cobra.Command {
	flags := &pushFlags{}

	cmd := &cobra.Command{
		Use:   "push <local-file>",
		Short: "Copy a local file to a device",
		Long: `Copy a local file to the device's file system.

The push is skipped when the device already holds a file with the same name
and MD5. Before any data moves nxsync checks that the local file exists and
that the remote file system has room for it. A failed transfer leaves the
remote file in an undefined state; run "nxsync check" before retrying.`,
		Example: `  # Push an image to the bootflash of leaf1
  nxsync push nxos64-cs.10.3.4a.M.bin --device leaf1 --verify

  # Push to a device that is not in the inventory
  nxsync push poap.py --target ssh://admin@10.0.0.11 --fs volatile:

  # Push under another name, even when the same file is already there
  nxsync push build/startup.cfg --device leaf1 --dest startup-new.cfg --force`,
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
			return app.RunPush(cmd.Context(), app.PushOptions{
				CommonOptions: flags.options(global),
				LocalPath:     args[0],
				Dest:          flags.dest,
				Force:         flags.force,
				Verify:        flags.verify,
				NoProgress:    flags.noProgress,
			}, cmd.OutOrStdout())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.dest, "dest", "", "Remote file name (default: local base name)")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Push even when the remote file matches")
	cmd.Flags().BoolVar(&flags.verify, "verify", false, "Compare checksums again after the push")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Do not draw a progress bar")

	return cmd
}
