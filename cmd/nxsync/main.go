package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tturner/nxsync/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.Failure(fmt.Sprintf("error: %v", err)))
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	global := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "nxsync",
		Short: "Verified file transfer for NX-OS switches",
		Long: `nxsync copies files to and from Cisco NX-OS switches. Before a push it
checks that the device has room for the file, and it compares MD5 checksums
so that files already on the device are not sent again.

Devices come from an inventory file (~/.nxsync/config.yaml, see
"nxsync config init") or from --target.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&global.config, "config", "", "Inventory file (default ~/.nxsync/config.yaml)")
	pf.BoolVar(&global.verbose, "verbose", false, "Enable verbose output")
	pf.BoolVar(&global.debug, "debug", false, "Enable debug output")
	pf.StringVar(&global.logFile, "log-file", "", "Append log output to this file")
	pf.StringVar(&global.logLevel, "log-level", "", "Log level: silent|error|info|verbose|debug")

	rootCmd.AddCommand(newPushCmd(global))
	rootCmd.AddCommand(newPullCmd(global))
	rootCmd.AddCommand(newCheckCmd(global))
	rootCmd.AddCommand(newHashCmd())
	rootCmd.AddCommand(newHistoryCmd(global))
	rootCmd.AddCommand(newConfigCmd(global))
	rootCmd.AddCommand(newVersionCmd())

	// Custom help command
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd.HasParent() {
			fmt.Fprintln(cmd.OutOrStdout(), cmd.UsageString())
			return
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Usage:\n  %s <command> [arguments] [options]\n\n", cmd.Name())
		fmt.Fprintf(out, "Available Commands:\n")
		for _, subCmd := range cmd.Commands() {
			if !subCmd.Hidden {
				fmt.Fprintf(out, "  %-15s %s\n", subCmd.Name(), subCmd.Short)
			}
		}
		fmt.Fprintf(out, "\nUse \"%s help <command>\" for more information about a command.\n", cmd.Name())
	})

	return rootCmd
}
