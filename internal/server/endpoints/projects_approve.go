package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/api"
	"github.com/quillhq/quill/internal/project"
	"github.com/quillhq/quill/internal/svcctx"
)

// ApproveStructureEndpoint handles POST /api/projects/{id}/structure/approve.
type ApproveStructureEndpoint struct{}

func (e *ApproveStructureEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/projects/{id}/structure/approve", e.handler
}

func (e *ApproveStructureEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Approve the chapter structure
//	@Description	Accept the proposed structure and start the writing stage
//	@Tags			projects
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"
//	@Success		202	{object}	project.Project
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/projects/{id}/structure/approve [post]
func (e *ApproveStructureEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	p, err := orch.ApproveStructure(r.Context(), id)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, p)
}

func (e *ApproveStructureEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve the chapter structure and start writing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var p project.Project
			if err := client.Post(cmd.Context(), "/api/projects/"+args[0]+"/structure/approve", nil, &p); err != nil {
				return err
			}
			return api.Output(p)
		},
	}
}
