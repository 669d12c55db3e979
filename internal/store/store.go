// Package store persists projects and admission records. The production
// backend is DefraDB reached over its HTTP/GraphQL API; a memory backend
// is provided for tests and for running without Docker.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/quillhq/quill/internal/project"
)

// Sentinel errors for the store package.
var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when a compare-and-swap write loses
	// the race against a newer version of the same project.
	ErrVersionConflict = errors.New("version conflict")
)

// PendingIntent records an admission attempt that was denied for lack of
// credits. Kept purely for visibility; nothing retries it automatically.
type PendingIntent struct {
	ID         string    `json:"id"`
	OwnerEmail string    `json:"owner_email"`
	OwnerName  string    `json:"owner_name"`
	Topic      string    `json:"topic"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the project persistence interface.
//
// Update performs a compare-and-swap on Project.Version: the write succeeds
// only if the stored version equals the caller's, and bumps the version by
// one. A caller holding a stale copy gets ErrVersionConflict and must
// re-read instead of overwriting newer progress.
type Store interface {
	Create(ctx context.Context, p *project.Project) error
	Get(ctx context.Context, id string) (*project.Project, error)
	Update(ctx context.Context, p *project.Project) error

	// LatestByOwner returns the most recently created project for the
	// owner email, terminal or not. ErrNotFound when the owner has none.
	LatestByOwner(ctx context.Context, email string) (*project.Project, error)

	// List returns all projects, newest first.
	List(ctx context.Context) ([]*project.Project, error)

	RecordPendingIntent(ctx context.Context, intent PendingIntent) error
	PendingIntents(ctx context.Context) ([]PendingIntent, error)
}

// UpdateProject applies fn to the current project state under the CAS
// discipline: read, mutate, write, retrying once on a lost race so the
// mutation lands on top of whatever the winner persisted.
func UpdateProject(ctx context.Context, s Store, id string, fn func(*project.Project)) (*project.Project, error) {
	for attempt := 0; attempt < 2; attempt++ {
		p, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		fn(p)
		if err := s.Update(ctx, p); err != nil {
			if errors.Is(err, ErrVersionConflict) && attempt == 0 {
				continue
			}
			return nil, err
		}
		return p, nil
	}
	return nil, ErrVersionConflict
}
