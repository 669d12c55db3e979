// Package render turns a completed project into a paginated PDF artifact.
// Typography is deliberately minimal: a title page, one block of body text
// per page, and page numbers. The pipeline invokes Render exactly once, on
// the transition into COMPLETED.
package render

import (
	"context"

	"github.com/quillhq/quill/internal/project"
)

// Renderer produces the final artifact for a completed project.
type Renderer interface {
	// Render writes the artifact and returns its path.
	Render(ctx context.Context, p *project.Project) (string, error)
}

// Noop is a Renderer that produces nothing. Used in tests and when the
// deployment disables artifact generation.
type Noop struct{}

func (Noop) Render(ctx context.Context, p *project.Project) (string, error) {
	return "", nil
}
