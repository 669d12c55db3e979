package endpoints

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/svcctx"
)

// MetricsEndpoint serves Prometheus metrics on GET /metrics.
type MetricsEndpoint struct{}

func (e *MetricsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/metrics", e.handler
}

func (e *MetricsEndpoint) RequiresInit() bool { return false }

func (e *MetricsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	reg := svcctx.RegistryFrom(r.Context())
	if reg == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics not initialized")
		return
	}
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func (e *MetricsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:    "metrics",
		Hidden: true,
		Short:  "Print the Prometheus metrics endpoint URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println(getServerURL() + "/metrics")
			return nil
		},
	}
}
