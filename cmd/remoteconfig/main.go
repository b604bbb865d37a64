// Remoteconfig is a command-line client for remote configuration nodes.
//
// It discovers nodes by mDNS, reads and writes their configuration files,
// and sends actions such as display, identify and reboot.
//
// Usage:
//
//	remoteconfig [command] [flags]
//
// See 'remoteconfig --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanvught/rpidmx512-sub012/internal/client"
	"github.com/vanvught/rpidmx512-sub012/internal/logging"
	"github.com/vanvught/rpidmx512-sub012/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", client.ShortMessage(err))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "remoteconfig",
	Short: "Remote configuration client",
	Long: `A command-line client for DMX/RDM lighting nodes running remoteconfigd.

Nodes are found by mDNS unless --node names one.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeFromEnv()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("remoteconfig %s\n", version.Full())
	},
}
