package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "aidash",
	Short: "Dashboard AI backend - multi-tenant completion proxy",
	Long: `Aidash is the backend for the dashboard's AI assistant. It proxies
completion requests to the tenant's configured upstream AI service,
persists conversations and messages, and writes an audit record for
every completion call.

Each tenant brings its own upstream configuration: base URL, API key,
default model, and system prompt. Requests from tenants without a
working configuration are rejected before anything is persisted.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
