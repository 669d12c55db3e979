package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/api"
	"github.com/quillhq/quill/internal/store"
	"github.com/quillhq/quill/internal/svcctx"
)

// PendingIntentsResponse lists recorded admission denials.
type PendingIntentsResponse struct {
	Intents []store.PendingIntent `json:"intents"`
	Count   int                   `json:"count"`
}

// PendingIntentsEndpoint handles GET /api/pending.
type PendingIntentsEndpoint struct{}

func (e *PendingIntentsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/pending", e.handler
}

func (e *PendingIntentsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List pending intents
//	@Description	List start requests that were denied for lack of credits
//	@Tags			admission
//	@Produce		json
//	@Success		200	{object}	PendingIntentsResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/pending [get]
func (e *PendingIntentsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s := svcctx.StoreFrom(r.Context())
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	intents, err := s.PendingIntents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PendingIntentsResponse{Intents: intents, Count: len(intents)})
}

func (e *PendingIntentsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List start requests denied for lack of credits",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PendingIntentsResponse
			if err := client.Get(cmd.Context(), "/api/pending", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
