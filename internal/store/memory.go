package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quillhq/quill/internal/project"
)

// Memory is an in-process Store. Used by tests and by `quill serve
// --store memory`; state is lost on restart.
type Memory struct {
	mu       sync.RWMutex
	projects map[string]*project.Project
	pending  []PendingIntent
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		projects: make(map[string]*project.Project),
	}
}

func (m *Memory) Create(ctx context.Context, p *project.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p.Clone()
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*project.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) Update(ctx context.Context, p *project.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.projects[p.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != p.Version {
		return ErrVersionConflict
	}
	next := p.Clone()
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	m.projects[p.ID] = next

	// Reflect the committed version back to the caller so a subsequent
	// write from the same copy is not a spurious conflict.
	p.Version = next.Version
	p.UpdatedAt = next.UpdatedAt
	return nil
}

func (m *Memory) LatestByOwner(ctx context.Context, email string) (*project.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *project.Project
	for _, p := range m.projects {
		if p.Metadata.Owner.Email != email {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest.Clone(), nil
}

func (m *Memory) List(ctx context.Context) ([]*project.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*project.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) RecordPendingIntent(ctx context.Context, intent PendingIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, intent)
	return nil
}

func (m *Memory) PendingIntents(ctx context.Context) ([]PendingIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PendingIntent, len(m.pending))
	copy(out, m.pending)
	return out, nil
}
