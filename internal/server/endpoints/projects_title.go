package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/api"
	"github.com/quillhq/quill/internal/pipeline"
	"github.com/quillhq/quill/internal/project"
	"github.com/quillhq/quill/internal/store"
	"github.com/quillhq/quill/internal/svcctx"
)

// ChooseTitleEndpoint handles POST /api/projects/{id}/title.
type ChooseTitleEndpoint struct{}

func (e *ChooseTitleEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/projects/{id}/title", e.handler
}

func (e *ChooseTitleEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Choose the book title
//	@Description	Record the title choice and start structure generation
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Project ID"
//	@Param			request	body		pipeline.TitleChoice	true	"Chosen title (index into options, or explicit title)"
//	@Success		202		{object}	project.Project
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/projects/{id}/title [post]
func (e *ChooseTitleEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var choice pipeline.TitleChoice
	if err := json.NewDecoder(r.Body).Decode(&choice); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orch := svcctx.OrchestratorFrom(r.Context())
	if orch == nil {
		writeError(w, http.StatusServiceUnavailable, "orchestrator not initialized")
		return
	}

	p, err := orch.ChooseTitle(r.Context(), id, choice)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, p)
}

func (e *ChooseTitleEndpoint) Command(getServerURL func() string) *cobra.Command {
	var index int
	var title, subtitle string
	cmd := &cobra.Command{
		Use:   "title <id>",
		Short: "Choose the book title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			choice := pipeline.TitleChoice{Title: title, Subtitle: subtitle}
			if cmd.Flags().Changed("index") {
				choice.Index = &index
			}

			client := api.NewClient(getServerURL())
			var p project.Project
			if err := client.Post(cmd.Context(), "/api/projects/"+args[0]+"/title", choice, &p); err != nil {
				return err
			}
			return api.Output(p)
		},
	}
	cmd.Flags().IntVar(&index, "index", 0, "Index into the candidate title list")
	cmd.Flags().StringVar(&title, "title", "", "Explicit title")
	cmd.Flags().StringVar(&subtitle, "subtitle", "", "Explicit subtitle")
	return cmd
}

// writePipelineError maps pipeline and store errors onto HTTP statuses.
func writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "project not found")
	case errors.Is(err, pipeline.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrVersionConflict):
		writeError(w, http.StatusConflict, "project was modified concurrently, re-read and retry")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
