package endpoints

import (
	"github.com/quillhq/quill/internal/api"
	"github.com/quillhq/quill/internal/store"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	DockerManager   *store.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{DockerManager: cfg.DockerManager},

		// Project endpoints
		&StartProjectEndpoint{},
		&ListProjectsEndpoint{},
		&GetProjectEndpoint{},
		&ChooseTitleEndpoint{},
		&ApproveStructureEndpoint{},
		&FinalizeProjectEndpoint{},
		&RetryProjectEndpoint{},
		&CancelTaskEndpoint{},

		// Admission endpoints
		&PendingIntentsEndpoint{},

		// Observability endpoints
		&MetricsEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}
