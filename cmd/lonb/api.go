package main

import (
	"github.com/spf13/cobra"

	"github.com/codevakure/lonb/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running lonb server via HTTP.

These commands require a running server (lonb serve).
Use --server to specify a custom server URL.

Examples:
  lonb api health                               # Check server health
  lonb api schemas                              # List extraction schemas
  lonb api extract <booking-id> <schema>        # Run an extraction`,
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	for _, ep := range endpoints.All() {
		apiCmd.AddCommand(ep.Command(getServerURL))
	}

	rootCmd.AddCommand(apiCmd)
}
