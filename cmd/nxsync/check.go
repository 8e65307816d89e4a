package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/nxsync/internal/app"
)

type checkFlags struct {
	deviceFlags
	dest string
	json bool
}

func newCheckCmd(global *globalFlags) *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check <local-file>",
		Short: "Compare a local file with its copy on a device",
		Long: `Report the free space of the remote file system, whether the file fits,
whether it exists on both sides, and both MD5 checksums. Nothing is
transferred.`,
		Example: `  nxsync check nxos64-cs.10.3.4a.M.bin --device leaf1
  nxsync check nxos64-cs.10.3.4a.M.bin --device leaf1 --json`,
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
			return app.RunCheck(cmd.Context(), app.CheckOptions{
				CommonOptions: flags.options(global),
				LocalPath:     args[0],
				Dest:          flags.dest,
				JSON:          flags.json,
			}, cmd.OutOrStdout())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.dest, "dest", "", "Remote file name (default: local base name)")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the result as JSON")

	return cmd
}
