//
//
package main

import (
	"github.com/spf13/cobra"

	"github.com/lng-monitor/relay/internal/api"
	"github.com/lng-monitor/relay/internal/config"
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "relay",
		Short: "Telemetry relay for the LNG laboratory monitoring system.",
		Long: `Relay simulates the laboratory instruments, broadcasts snapshots to ` +
			`WebSocket consumers and serves the realtime and history HTTP API.`,
		Version:      api.Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "",
		"path to a YAML config file (default $"+config.EnvConfigPath+")")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(newServeCmd(load), newWatchCmd(load))
	return root
}

// configLoader defers config loading until flags are parsed.
type configLoader func() (*config.Config, error)
