package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/nxsync/internal/app"
	"github.com/tturner/nxsync/internal/filecopy"
)

func newHashCmd() *cobra.Command {
	var opts app.HashOptions

	cmd := &cobra.Command{
		Use:   "hash <file>",
		Short: "Print the MD5 of a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			return app.RunHash(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.BlockSize, "block-size", filecopy.DefaultBlockSize, "Read size in bytes")
	cmd.Flags().BoolVar(&opts.Copy, "copy", false, "Copy the checksum to the clipboard")

	return cmd
}
