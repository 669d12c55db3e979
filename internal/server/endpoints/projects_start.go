package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/api"
	"github.com/quillhq/quill/internal/pipeline"
	"github.com/quillhq/quill/internal/project"
	"github.com/quillhq/quill/internal/svcctx"
)

// StartProjectEndpoint handles POST /api/projects.
// It is the admission gate: either a new project is created and research
// begins, or the caller is reattached to their in-flight project, or the
// request is denied for lack of credits.
type StartProjectEndpoint struct{}

func (e *StartProjectEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/projects", e.handler
}

func (e *StartProjectEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start or resume a book project
//	@Description	Charges one credit and starts a new book pipeline, or resumes the owner's in-flight project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			request	body		pipeline.StartRequest	true	"Project request"
//	@Success		202		{object}	pipeline.StartResult
//	@Failure		400		{object}	ErrorResponse
//	@Failure		402		{object}	pipeline.StartResult
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/projects [post]
func (e *StartProjectEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req pipeline.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orch := svcctx.OrchestratorFrom(r.Context())
	if orch == nil {
		writeError(w, http.StatusServiceUnavailable, "orchestrator not initialized")
		return
	}

	res, err := orch.StartOrResume(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if res.Denied != nil {
		writeJSON(w, http.StatusPaymentRequired, res)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (e *StartProjectEndpoint) Command(getServerURL func() string) *cobra.Command {
	var language, author, name string
	var force bool
	cmd := &cobra.Command{
		Use:   "start <topic> <email>",
		Short: "Start a book project",
		Long: `Start a new book project for an owner.

If the owner already has a project in flight, that project is returned
instead of creating a new one (no credit is charged). Use --force to
always create a new project.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var res pipeline.StartResult
			err := client.Post(cmd.Context(), "/api/projects", pipeline.StartRequest{
				Topic:      args[0],
				Language:   language,
				AuthorName: author,
				Owner:      project.Contact{Name: name, Email: args[1]},
				Force:      force,
			}, &res)
			if api.IsPaymentRequired(err) {
				return fmt.Errorf("%s has no credits; grant some before starting", args[1])
			}
			if err != nil {
				return err
			}
			return api.Output(res)
		},
	}
	cmd.Flags().StringVar(&language, "language", "English", "Book language")
	cmd.Flags().StringVar(&author, "author", "", "Author name printed on the book")
	cmd.Flags().StringVar(&name, "name", "", "Owner display name")
	cmd.Flags().BoolVar(&force, "force", false, "Always create a new project")
	return cmd
}
