package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/config"
	"github.com/quillhq/quill/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Quill server",
	Long: `Start the Quill HTTP server.

This starts the HTTP API server and, unless disabled, the DefraDB
container holding pipeline state. When the server shuts down (via
Ctrl+C or SIGTERM), DefraDB is also stopped. Projects in flight are
checkpointed and resume on the next start request.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes store status)

Examples:
  quill serve                    # Start on default port 8585
  quill serve --port 3000        # Start on custom port
  quill serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := getHome()
		if err != nil {
			return err
		}

		// First run: write a default config to edit later
		cfgPath := cfgFile
		if cfgPath == "" {
			if !h.ConfigExists() {
				if err := config.WriteDefault(h.ConfigPath()); err != nil {
					return fmt.Errorf("failed to write default config: %w", err)
				}
				logger.Info("wrote default config", "path", h.ConfigPath())
			}
			cfgPath = h.ConfigPath()
		}

		mgr, err := config.NewManager(cfgPath)
		if err != nil {
			return err
		}
		mgr.WatchConfig()

		// Flags win over the config file
		if !cmd.Flags().Changed("host") {
			serveHost = mgr.Get().Server.Host
		}
		if !cmd.Flags().Changed("port") {
			servePort = mgr.Get().Server.Port
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: mgr,
			Home:          h,
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
	serveCmd.Flags().StringVar(&servePort, "port", "8585", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
