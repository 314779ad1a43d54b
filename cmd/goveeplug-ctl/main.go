// Goveeplug-ctl is a command line utility for Govee Bluetooth smart plugs.
//
// It provides plug discovery, an interactive pairing wizard, and direct
// switching commands for Govee H5080/H5082/H5086 plugs. The tool talks to
// plugs over Bluetooth Low Energy and needs no Govee cloud account.
//
// Usage:
//
//	goveeplug-ctl [command] [flags]
//
// Running without arguments in a terminal launches the interactive wizard.
// See 'goveeplug-ctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/goveeplug/internal/logging"
	"github.com/muurk/goveeplug/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "goveeplug-ctl",
	Short: "Govee Smart Plug Control Utility",
	Long: `A standalone utility for controlling Govee Bluetooth smart plugs.

Provides plug discovery, Bluetooth pairing, and direct on/off commands
for Govee H5080, H5082 and H5086 plugs, entirely over BLE.

If no command is specified and stdout is a terminal, the interactive
wizard will launch automatically.`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run wizard when invoked interactively with no
		// subcommand; scripts piping output get the help text instead
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return runWizard(cmd, args)
		}
		return cmd.Help()
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("goveeplug-ctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
