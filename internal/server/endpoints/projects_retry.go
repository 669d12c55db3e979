package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/api"
	"github.com/quillhq/quill/internal/project"
	"github.com/quillhq/quill/internal/svcctx"
)

// RetryProjectEndpoint handles POST /api/projects/{id}/retry.
type RetryProjectEndpoint struct{}

func (e *RetryProjectEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/projects/{id}/retry", e.handler
}

func (e *RetryProjectEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Retry a failed project
//	@Description	Re-run the stage a failed project died in
//	@Tags			projects
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"
//	@Success		202	{object}	project.Project
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/projects/{id}/retry [post]
func (e *RetryProjectEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	orch := svcctx.OrchestratorFrom(r.Context())
	if orch == nil {
		writeError(w, http.StatusServiceUnavailable, "orchestrator not initialized")
		return
	}

	p, err := orch.Retry(r.Context(), id)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, p)
}

func (e *RetryProjectEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Retry a failed project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var p project.Project
			err := client.Post(cmd.Context(), "/api/projects/"+args[0]+"/retry", nil, &p)
			if api.IsConflict(err) {
				return fmt.Errorf("project %s is not in a failed state: %w", args[0], err)
			}
			if err != nil {
				return err
			}
			return api.Output(p)
		},
	}
}
