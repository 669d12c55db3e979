package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quillhq/quill/internal/project"
)

func newTestProject(email string) *project.Project {
	return project.New(project.Metadata{
		Topic:    "Test Topic",
		Language: "en",
		Owner:    project.Contact{Name: "Test Owner", Email: email},
	})
}

func TestMemory_CreateGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	p := newTestProject("a@example.com")
	if err := m.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := m.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Metadata.Topic != "Test Topic" {
		t.Errorf("topic = %q, want %q", got.Metadata.Topic, "Test Topic")
	}
	if got.Metadata.Status != project.StatusIdle {
		t.Errorf("status = %q, want IDLE", got.Metadata.Status)
	}

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemory_GetReturnsClone(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	p := newTestProject("a@example.com")
	p.Structure = []project.Chapter{{ID: 1, Title: "One"}}
	if err := m.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, _ := m.Get(ctx, p.ID)
	got.Structure[0].Title = "mutated"

	again, _ := m.Get(ctx, p.ID)
	if again.Structure[0].Title != "One" {
		t.Errorf("stored chapter mutated through returned copy")
	}
}

func TestMemory_UpdateCAS(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	p := newTestProject("a@example.com")
	if err := m.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	a, _ := m.Get(ctx, p.ID)
	b, _ := m.Get(ctx, p.ID)

	a.Metadata.StatusMessage = "writer A"
	if err := m.Update(ctx, a); err != nil {
		t.Fatalf("first Update() error = %v", err)
	}
	if a.Version != p.Version+1 {
		t.Errorf("version after update = %d, want %d", a.Version, p.Version+1)
	}

	b.Metadata.StatusMessage = "writer B"
	if err := m.Update(ctx, b); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale Update() error = %v, want ErrVersionConflict", err)
	}

	got, _ := m.Get(ctx, p.ID)
	if got.Metadata.StatusMessage != "writer A" {
		t.Errorf("message = %q, want %q (loser must not overwrite)", got.Metadata.StatusMessage, "writer A")
	}
}

func TestMemory_LatestByOwner(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	older := newTestProject("owner@example.com")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := newTestProject("owner@example.com")
	other := newTestProject("other@example.com")

	for _, p := range []*project.Project{older, newer, other} {
		if err := m.Create(ctx, p); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	got, err := m.LatestByOwner(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("LatestByOwner() error = %v", err)
	}
	if got.ID != newer.ID {
		t.Errorf("LatestByOwner() = %s, want %s (most recent)", got.ID, newer.ID)
	}

	if _, err := m.LatestByOwner(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestByOwner(nobody) error = %v, want ErrNotFound", err)
	}
}

func TestMemory_List(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	older := newTestProject("a@example.com")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := newTestProject("b@example.com")

	for _, p := range []*project.Project{older, newer} {
		if err := m.Create(ctx, p); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d projects, want 2", len(list))
	}
	if list[0].ID != newer.ID {
		t.Errorf("List()[0] = %s, want newest first (%s)", list[0].ID, newer.ID)
	}
}

func TestMemory_PendingIntents(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	intent := PendingIntent{
		ID:         "intent-1",
		OwnerEmail: "broke@example.com",
		Topic:      "Stoicism for Beginners",
		Reason:     "no_credits",
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.RecordPendingIntent(ctx, intent); err != nil {
		t.Fatalf("RecordPendingIntent() error = %v", err)
	}

	intents, err := m.PendingIntents(ctx)
	if err != nil {
		t.Fatalf("PendingIntents() error = %v", err)
	}
	if len(intents) != 1 || intents[0].Reason != "no_credits" {
		t.Errorf("intents = %+v, want one no_credits record", intents)
	}
}

// conflictOnceStore rejects the first Update with a version conflict.
type conflictOnceStore struct {
	Store
	conflicted bool
}

func (c *conflictOnceStore) Update(ctx context.Context, p *project.Project) error {
	if !c.conflicted {
		c.conflicted = true
		return ErrVersionConflict
	}
	return c.Store.Update(ctx, p)
}

func TestUpdateProject_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	p := newTestProject("a@example.com")
	if err := m.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	cs := &conflictOnceStore{Store: m}
	updated, err := UpdateProject(ctx, cs, p.ID, func(p *project.Project) {
		p.Metadata.StatusMessage = "hello"
		p.Detail = project.FailedDetail("research")
	})
	if err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}
	if !cs.conflicted {
		t.Fatal("first Update should have conflicted")
	}
	if updated.Metadata.StatusMessage != "hello" {
		t.Errorf("message = %q, want %q", updated.Metadata.StatusMessage, "hello")
	}
	if updated.Detail == nil || updated.Detail.Cause != "research" {
		t.Errorf("detail = %+v, want a research failure detail", updated.Detail)
	}
}
