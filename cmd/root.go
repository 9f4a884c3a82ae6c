// Package cmd wires the portal's commands: serve runs the network surfaces,
// mcp exposes the same tools over a Model Context Protocol transport.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentix/droidportal/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "droidportal",
	Short: "Remote-control portal for Android UI automation",
	Long: `droidportal exposes a device's UI-automation layer to remote callers:
an HTTP command surface, a WebSocket JSON-RPC surface, and an optional
reverse connection that dials out to a controlling agent.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text, json (overrides config)")
	rootCmd.PersistentFlags().String("adb-serial", "", "Target device serial (overrides config)")
}
