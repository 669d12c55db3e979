package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/api"
	"github.com/quillhq/quill/internal/svcctx"
)

// CancelTaskResponse reports the outcome of a task cancellation.
type CancelTaskResponse struct {
	ProjectID string `json:"project_id"`
	Cancelled bool   `json:"cancelled"`
}

// CancelTaskEndpoint handles DELETE /api/projects/{id}/task. It stops
// the project's running background stage; the project itself stays and
// resumes from its last checkpoint on the next trigger.
type CancelTaskEndpoint struct{}

func (e *CancelTaskEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/projects/{id}/task", e.handler
}

func (e *CancelTaskEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Cancel a project's running stage
//	@Description	Stop the background task currently advancing the project
//	@Tags			projects
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"
//	@Success		200	{object}	CancelTaskResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/projects/{id}/task [delete]
func (e *CancelTaskEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	cancelled := orch.Cancel(id)
	if !cancelled {
		writeError(w, http.StatusNotFound, "no task running for project")
		return
	}
	writeJSON(w, http.StatusOK, CancelTaskResponse{ProjectID: id, Cancelled: true})
}

func (e *CancelTaskEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a project's running stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CancelTaskResponse
			err := client.Delete(cmd.Context(), "/api/projects/"+args[0]+"/task", &resp)
			if api.IsNotFound(err) {
				return api.Output(CancelTaskResponse{ProjectID: args[0], Cancelled: false})
			}
			if err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
