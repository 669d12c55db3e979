package endpoints

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/api"
	"github.com/quillhq/quill/internal/project"
	"github.com/quillhq/quill/internal/store"
	"github.com/quillhq/quill/internal/svcctx"
)

// GetProjectEndpoint handles GET /api/projects/{id}. Clients poll this to
// observe pipeline progress.
type GetProjectEndpoint struct{}

func (e *GetProjectEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/projects/{id}", e.handler
}

func (e *GetProjectEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a project
//	@Description	Get a project's full state including status, progress and structure
//	@Tags			projects
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"
//	@Success		200	{object}	project.Project
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/projects/{id} [get]
func (e *GetProjectEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	s := svcctx.StoreFrom(r.Context())
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	p, err := s.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (e *GetProjectEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var p project.Project
			if err := client.Get(cmd.Context(), "/api/projects/"+args[0], &p); err != nil {
				return err
			}
			return api.Output(p)
		},
	}
}

// ListProjectsResponse is the response for listing projects.
type ListProjectsResponse struct {
	Projects []*project.Project `json:"projects"`
	Count    int                `json:"count"`
}

// ListProjectsEndpoint handles GET /api/projects.
type ListProjectsEndpoint struct{}

func (e *ListProjectsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/projects", e.handler
}

func (e *ListProjectsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List projects
//	@Description	List all projects, newest first, optionally filtered by owner email
//	@Tags			projects
//	@Produce		json
//	@Param			owner	query		string	false	"Filter by owner email"
//	@Success		200		{object}	ListProjectsResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/projects [get]
func (e *ListProjectsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s := svcctx.StoreFrom(r.Context())
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	projects, err := s.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if owner := r.URL.Query().Get("owner"); owner != "" {
		filtered := projects[:0]
		for _, p := range projects {
			if p.Metadata.Owner.Email == owner {
				filtered = append(filtered, p)
			}
		}
		projects = filtered
	}

	writeJSON(w, http.StatusOK, ListProjectsResponse{Projects: projects, Count: len(projects)})
}

func (e *ListProjectsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/projects"
			if owner != "" {
				path += "?owner=" + url.QueryEscape(owner)
			}
			var resp ListProjectsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Filter by owner email")
	return cmd
}
