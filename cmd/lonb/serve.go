package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codevakure/lonb/internal/config"
	"github.com/codevakure/lonb/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lonb server",
	Long: `Start the lonb HTTP server.

AWS credentials come from the default credential chain. Knowledge base,
storage, and table settings come from the config file and can be changed
without a restart.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes extraction pipeline)

Examples:
  lonb serve                    # Start on default port 8080
  lonb serve --port 3000        # Start on custom port
  lonb serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		configMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		configMgr.WatchConfig()

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: configMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
