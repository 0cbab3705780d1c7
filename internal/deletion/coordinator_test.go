package deletion

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"blueprint/internal/notify"
)

type project struct {
	ID   string
	Name string
}

type recordingBus struct {
	mu     sync.Mutex
	events []notify.Event
}

func (b *recordingBus) Publish(ev notify.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

func (b *recordingBus) all() []notify.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]notify.Event(nil), b.events...)
}

// lastUndo returns the undo callback of the newest undo notification.
func (b *recordingBus) lastUndo(t *testing.T) func() {
	t.Helper()
	events := b.all()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == notify.SeverityUndo {
			return events[i].OnUndo
		}
	}
	t.Fatal("no undo notification published")
	return nil
}

type harness struct {
	clock    *clockwork.FakeClock
	bus      *recordingBus
	coord    *Coordinator[project]
	deleted  chan string
	restored chan string
	deletes  atomic.Int32
	restores atomic.Int32
	failWith error
}

func newHarness(t *testing.T, grace time.Duration) *harness {
	t.Helper()
	h := &harness{
		clock:    clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)),
		bus:      &recordingBus{},
		deleted:  make(chan string, 16),
		restored: make(chan string, 16),
	}
	coord, err := New(Options[project]{
		GetID: func(p project) string { return p.ID },
		OnDelete: func(ctx context.Context, p project) error {
			h.deletes.Add(1)
			h.deleted <- p.ID
			return h.failWith
		},
		OnRestore: func(p project) {
			h.restores.Add(1)
			h.restored <- p.ID
		},
		Grace:     grace,
		Message:   func(p project) string { return "Deleted " + p.Name },
		UndoLabel: "Undo",
		Bus:       h.bus,
		Clock:     h.clock,
	})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	h.coord = coord
	t.Cleanup(coord.Close)
	return h
}

func (h *harness) expectDeleted(t *testing.T, id string) {
	t.Helper()
	select {
	case got := <-h.deleted:
		if got != id {
			t.Fatalf("expected delete of %s, got %s", id, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for delete of %s", id)
	}
}

func (h *harness) expectNoDelete(t *testing.T) {
	t.Helper()
	select {
	case got := <-h.deleted:
		t.Fatalf("unexpected delete of %s", got)
	case <-time.After(30 * time.Millisecond):
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestNewRequiresCallbacks(t *testing.T) {
	if _, err := New(Options[project]{OnDelete: func(context.Context, project) error { return nil }}); err == nil {
		t.Fatal("expected error without GetID")
	}
	if _, err := New(Options[project]{GetID: func(p project) string { return p.ID }}); err == nil {
		t.Fatal("expected error without OnDelete")
	}
}

func TestUndoCancelsDeletion(t *testing.T) {
	h := newHarness(t, 6*time.Second)
	item := project{ID: "proj-7", Name: "Seven"}

	h.coord.InitiateDelete(item)
	if !h.coord.IsPendingDelete(item) {
		t.Fatal("expected pending deletion")
	}
	events := h.bus.all()
	if len(events) != 1 || events[0].Type != notify.SeverityUndo || events[0].Message != "Deleted Seven" || events[0].UndoText != "Undo" {
		t.Fatalf("unexpected notification: %#v", events)
	}

	h.clock.Advance(2 * time.Second)
	undo := h.bus.lastUndo(t)
	undo()
	if h.coord.IsPendingDelete(item) {
		t.Fatal("undo should clear the pending deletion")
	}

	// Undo again after the notification is gone: no-op.
	undo()

	h.clock.Advance(10 * time.Second)
	h.expectNoDelete(t)
	if h.deletes.Load() != 0 {
		t.Fatalf("onDelete must never run, ran %d times", h.deletes.Load())
	}
	if h.restores.Load() != 1 {
		t.Fatalf("expected one restore, got %d", h.restores.Load())
	}
}

func TestDeletionFiresAfterGrace(t *testing.T) {
	h := newHarness(t, 6*time.Second)
	item := project{ID: "proj-8"}

	h.coord.InitiateDelete(item)
	h.clock.Advance(6*time.Second - time.Millisecond)
	h.expectNoDelete(t)

	h.clock.Advance(time.Millisecond)
	h.expectDeleted(t, "proj-8")
	waitUntil(t, "pending cleared", func() bool { return !h.coord.IsPendingDelete(item) })

	h.clock.Advance(time.Minute)
	h.expectNoDelete(t)
	if h.deletes.Load() != 1 || h.restores.Load() != 0 {
		t.Fatalf("expected exactly one delete and no restore, got deletes=%d restores=%d", h.deletes.Load(), h.restores.Load())
	}

	// Undo after the delete executed is a no-op.
	h.bus.lastUndo(t)()
	if h.restores.Load() != 0 {
		t.Fatal("undo after execution must not restore")
	}
}

func TestIndependentPendingDeletions(t *testing.T) {
	h := newHarness(t, 6*time.Second)
	x := project{ID: "x"}
	y := project{ID: "y"}

	h.coord.InitiateDelete(x)
	undoX := h.bus.lastUndo(t)
	h.coord.InitiateDelete(y)

	if got := h.coord.PendingItems(); len(got) != 2 || got[0].ID != "x" || got[1].ID != "y" {
		t.Fatalf("unexpected pending items: %#v", got)
	}

	h.clock.Advance(time.Second)
	undoX()
	if h.coord.IsPendingDelete(x) || !h.coord.IsPendingDelete(y) {
		t.Fatal("cancelling x must leave y pending")
	}

	h.clock.Advance(5 * time.Second)
	h.expectDeleted(t, "y")
	h.expectNoDelete(t)
}

func TestReinitiateSupersedesPriorDeletion(t *testing.T) {
	h := newHarness(t, 5*time.Second)
	item := project{ID: "proj-1"}

	h.coord.InitiateDelete(item)
	firstUndo := h.bus.lastUndo(t)
	h.clock.Advance(3 * time.Second)

	h.coord.InitiateDelete(item)
	select {
	case id := <-h.restored:
		if id != "proj-1" {
			t.Fatalf("unexpected restore %s", id)
		}
	default:
		t.Fatal("superseded deletion should be restored first")
	}
	if got := h.coord.PendingList(); len(got) != 1 {
		t.Fatalf("expected one pending deletion per id, got %d", len(got))
	}

	// The stale undo must not cancel the new deletion.
	firstUndo()
	if !h.coord.IsPendingDelete(item) {
		t.Fatal("stale undo cancelled the replacement deletion")
	}

	// Old deadline (t=5s) passes without firing; the new one fires at t=8s.
	h.clock.Advance(2 * time.Second)
	h.expectNoDelete(t)
	h.clock.Advance(3 * time.Second)
	h.expectDeleted(t, "proj-1")
	if h.deletes.Load() != 1 {
		t.Fatalf("expected one delete, got %d", h.deletes.Load())
	}
}

func TestFailedDeletionPublishesErrorAndCleansUp(t *testing.T) {
	h := newHarness(t, time.Second)
	h.failWith = errors.New("backend unavailable")
	item := project{ID: "proj-9"}

	h.coord.InitiateDelete(item)
	h.clock.Advance(time.Second)
	h.expectDeleted(t, "proj-9")

	waitUntil(t, "error notification", func() bool {
		for _, ev := range h.bus.all() {
			if ev.Type == notify.SeverityError {
				return true
			}
		}
		return false
	})
	if h.coord.IsPendingDelete(item) {
		t.Fatal("failed deletion must not stay pending")
	}

	// Not retried.
	h.clock.Advance(time.Minute)
	h.expectNoDelete(t)
}

func TestCancelAllPending(t *testing.T) {
	h := newHarness(t, 4*time.Second)
	for _, id := range []string{"a", "b", "c"} {
		h.coord.InitiateDelete(project{ID: id})
	}
	if n := h.coord.CancelAllPending(); n != 3 {
		t.Fatalf("expected 3 cancelled, got %d", n)
	}
	if len(h.coord.PendingItems()) != 0 {
		t.Fatal("expected nothing pending")
	}
	h.clock.Advance(time.Minute)
	h.expectNoDelete(t)
	if h.restores.Load() != 3 {
		t.Fatalf("expected 3 restores, got %d", h.restores.Load())
	}
	if h.coord.Cancel("a") {
		t.Fatal("cancel after cancel-all must report false")
	}
}

func TestDeletionErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := error(&DeletionError{ID: "p", Err: cause})
	if !errors.Is(err, cause) {
		t.Fatal("expected DeletionError to unwrap its cause")
	}
	var delErr *DeletionError
	if !errors.As(err, &delErr) || delErr.ID != "p" {
		t.Fatalf("unexpected errors.As result: %#v", delErr)
	}
}
