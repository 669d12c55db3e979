package main

import (
	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Quill server via HTTP.

These commands require a running server (quill serve).
Use --server to specify a custom server URL.

Examples:
  quill api health                       # Check server health
  quill api projects start <topic> <email>
  quill api projects get <id>            # Inspect a project`,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Project management commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8585", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Projects as subcommand group
	projectsCmd.AddCommand((&endpoints.StartProjectEndpoint{}).Command(getServerURL))
	projectsCmd.AddCommand((&endpoints.ListProjectsEndpoint{}).Command(getServerURL))
	projectsCmd.AddCommand((&endpoints.GetProjectEndpoint{}).Command(getServerURL))
	projectsCmd.AddCommand((&endpoints.ChooseTitleEndpoint{}).Command(getServerURL))
	projectsCmd.AddCommand((&endpoints.ApproveStructureEndpoint{}).Command(getServerURL))
	projectsCmd.AddCommand((&endpoints.FinalizeProjectEndpoint{}).Command(getServerURL))
	projectsCmd.AddCommand((&endpoints.RetryProjectEndpoint{}).Command(getServerURL))
	projectsCmd.AddCommand((&endpoints.CancelTaskEndpoint{}).Command(getServerURL))

	// Pending intents at top level
	apiCmd.AddCommand((&endpoints.PendingIntentsEndpoint{}).Command(getServerURL))

	// Swagger spec
	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(apiCmd)
}
