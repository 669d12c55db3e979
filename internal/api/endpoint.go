package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Endpoint is one API operation, defined once and surfaced twice: as an
// HTTP route on the server and as a cobra command that calls that route.
type Endpoint interface {
	// Route returns the HTTP method, path pattern, and handler.
	Route() (method, path string, handler http.HandlerFunc)

	// RequiresInit reports whether the handler needs the store and
	// orchestrator; such routes return 503 until the server finishes
	// startup.
	RequiresInit() bool

	// Command returns the CLI mirror. getServerURL is resolved at run
	// time, after flag parsing.
	Command(getServerURL func() string) *cobra.Command
}
