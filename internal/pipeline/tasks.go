package pipeline

import (
	"context"
	"sync"
)

// taskRegistry tracks the one background task a project may have in
// flight. Handles are registered on spawn and removed when the task
// finishes, giving cancellation and join points without touching stage
// logic. At most one task per project id is admitted at a time, which
// also shields a double-submitted trigger from racing itself.
type taskRegistry struct {
	mu      sync.Mutex
	entries map[string]*taskHandle
}

type taskHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{entries: make(map[string]*taskHandle)}
}

// Register creates a handle for the project. Returns ok=false when a
// task is already running for it.
func (r *taskRegistry) Register(id string) (context.Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return nil, false
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.entries[id] = &taskHandle{cancel: cancel, done: make(chan struct{})}
	return ctx, true
}

// Done removes the project's handle and releases waiters.
func (r *taskRegistry) Done(id string) {
	r.mu.Lock()
	h := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if h != nil {
		h.cancel()
		close(h.done)
	}
}

// Cancel stops the project's task. Returns false when none is running.
func (r *taskRegistry) Cancel(id string) bool {
	r.mu.Lock()
	h := r.entries[id]
	r.mu.Unlock()
	if h == nil {
		return false
	}
	h.cancel()
	return true
}

// Wait blocks until the project's current task finishes. Returns
// immediately when none is running.
func (r *taskRegistry) Wait(id string) {
	r.mu.Lock()
	h := r.entries[id]
	r.mu.Unlock()
	if h == nil {
		return
	}
	<-h.done
}

// Running reports whether the project has a task in flight.
func (r *taskRegistry) Running(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// Shutdown cancels everything and waits.
func (r *taskRegistry) Shutdown() {
	r.mu.Lock()
	handles := make([]*taskHandle, 0, len(r.entries))
	for _, h := range r.entries {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
	for _, h := range handles {
		<-h.done
	}
}
