package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/api"
	"github.com/quillhq/quill/internal/pipeline"
	"github.com/quillhq/quill/internal/project"
	"github.com/quillhq/quill/internal/svcctx"
)

// FinalizeProjectEndpoint handles POST /api/projects/{id}/finalize.
type FinalizeProjectEndpoint struct{}

func (e *FinalizeProjectEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/projects/{id}/finalize", e.handler
}

func (e *FinalizeProjectEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Finalize a project
//	@Description	Apply personal details, render the artifact and complete the book
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Project ID"
//	@Param			request	body		pipeline.FinalDetails	false	"Personal details"
//	@Success		200		{object}	project.Project
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/projects/{id}/finalize [post]
func (e *FinalizeProjectEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var details pipeline.FinalDetails
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	orch := svcctx.OrchestratorFrom(r.Context())
	if orch == nil {
		writeError(w, http.StatusServiceUnavailable, "orchestrator not initialized")
		return
	}

	p, err := orch.Finalize(r.Context(), id, details)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (e *FinalizeProjectEndpoint) Command(getServerURL func() string) *cobra.Command {
	var dedication, acknowledgments, about string
	cmd := &cobra.Command{
		Use:   "finalize <id>",
		Short: "Finalize a project and render the book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var p project.Project
			err := client.Post(cmd.Context(), "/api/projects/"+args[0]+"/finalize", pipeline.FinalDetails{
				Dedication:      dedication,
				Acknowledgments: acknowledgments,
				AboutAuthor:     about,
			}, &p)
			if err != nil {
				return err
			}
			return api.Output(p)
		},
	}
	cmd.Flags().StringVar(&dedication, "dedication", "", "Dedication text")
	cmd.Flags().StringVar(&acknowledgments, "acknowledgments", "", "Acknowledgments text")
	cmd.Flags().StringVar(&about, "about-author", "", "About the author text")
	return cmd
}
