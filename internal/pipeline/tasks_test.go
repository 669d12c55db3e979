package pipeline

import (
	"testing"
	"time"
)

func TestTaskRegistry_OneTaskPerID(t *testing.T) {
	r := newTaskRegistry()

	ctx, ok := r.Register("a")
	if !ok {
		t.Fatal("first Register failed")
	}
	if _, ok := r.Register("a"); ok {
		t.Error("second Register for same id should be refused")
	}
	if !r.Running("a") {
		t.Error("task should be running")
	}

	r.Done("a")
	if r.Running("a") {
		t.Error("task should be gone after Done")
	}
	select {
	case <-ctx.Done():
	default:
		t.Error("Done should cancel the task context")
	}

	if _, ok := r.Register("a"); !ok {
		t.Error("id should be reusable after Done")
	}
	r.Done("a")
}

func TestTaskRegistry_CancelAndWait(t *testing.T) {
	r := newTaskRegistry()

	ctx, _ := r.Register("a")
	go func() {
		<-ctx.Done()
		r.Done("a")
	}()

	if !r.Cancel("a") {
		t.Fatal("Cancel found no task")
	}

	done := make(chan struct{})
	go func() {
		r.Wait("a")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancellation")
	}

	if r.Cancel("a") {
		t.Error("Cancel after completion should report no task")
	}
}

func TestTaskRegistry_WaitWithoutTask(t *testing.T) {
	r := newTaskRegistry()
	r.Wait("missing") // must not block
}
