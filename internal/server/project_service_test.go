package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"blueprint/internal/api"
	"blueprint/internal/notify"
	"blueprint/internal/store"
)

type failingDeleteStore struct {
	*store.Store
}

func (f *failingDeleteStore) DeleteProject(context.Context, string) error {
	return errors.New("disk full")
}

func newProjectServiceForTest(t *testing.T, projects store.ProjectStore) (*ProjectService, *notify.Center, *clockwork.FakeClock) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClock()
	bus := notify.NewLocalBus(logger)
	center := notify.NewCenter(notify.CenterOptions{Clock: clock, Logger: logger})
	if err := center.Attach(bus); err != nil {
		t.Fatalf("attach: %v", err)
	}
	svc, err := NewProjectService(ProjectServiceOptions{
		Store:  projects,
		Bus:    bus,
		Clock:  clock,
		Grace:  3 * time.Second,
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() {
		svc.Close()
		center.Close()
	})
	return svc, center, clock
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestProjectServiceDeleteFailurePublishesError(t *testing.T) {
	st := openTestStore(t)
	svc, center, clock := newProjectServiceForTest(t, &failingDeleteStore{Store: st})
	ctx := context.Background()

	created, err := svc.Create(ctx, api.ProjectCreateRequest{Name: "Doomed"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	clock.Advance(3 * time.Second)

	eventually(t, "error notification", func() bool {
		for _, v := range center.Snapshot() {
			if v.Severity == notify.SeverityError && v.Message == `Failed to delete "Doomed"` {
				return !v.AutoDismiss
			}
		}
		return false
	})
	eventually(t, "pending entry cleanup", func() bool { return svc.PendingCount() == 0 })

	// The row survives a failed delete and is listed again.
	list, err := svc.List(ctx, 0, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("expected surviving project, got %#v", list)
	}
}

func TestProjectServiceRedeleteSupersedes(t *testing.T) {
	st := openTestStore(t)
	svc, center, clock := newProjectServiceForTest(t, st)
	ctx := context.Background()

	created, err := svc.Create(ctx, api.ProjectCreateRequest{Name: "Twice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	clock.Advance(2 * time.Second)
	second, err := svc.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if !second.ExecutesAt.Equal(clock.Now().Add(3 * time.Second)) {
		t.Fatalf("expected grace to restart, executes at %v", second.ExecutesAt)
	}
	if got := len(svc.Pending()); got != 1 {
		t.Fatalf("expected a single pending entry, got %d", got)
	}
	if got := len(center.Snapshot()); got != 2 {
		t.Fatalf("expected two undo notifications, got %d", got)
	}

	// The first grace deadline passes without deleting.
	clock.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if project, _ := st.GetProject(ctx, created.ID); project == nil {
		t.Fatal("project deleted at the superseded deadline")
	}

	clock.Advance(time.Second)
	eventually(t, "deletion at the restarted deadline", func() bool {
		project, err := st.GetProject(ctx, created.ID)
		return err == nil && project == nil
	})
}

func TestNewProjectServiceRequiresStore(t *testing.T) {
	if _, err := NewProjectService(ProjectServiceOptions{}); err == nil {
		t.Fatal("expected error without store")
	}
}

func TestProjectServiceDeleteKeepsSharedLogo(t *testing.T) {
	st := openTestStore(t)
	svc, _, clock := newProjectServiceForTest(t, st)
	ctx := context.Background()

	if err := st.Save(ctx, "logo-1", []byte("png")); err != nil {
		t.Fatalf("save logo: %v", err)
	}
	first, err := svc.Create(ctx, api.ProjectCreateRequest{Name: "First", LogoRef: "internal:logo-1"})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(ctx, api.ProjectCreateRequest{Name: "Second", LogoRef: "internal:logo-1"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if _, err := svc.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	clock.Advance(3 * time.Second)

	eventually(t, "first project deletion", func() bool {
		project, err := st.GetProject(ctx, first.ID)
		return err == nil && project == nil
	})

	remaining, err := st.GetProject(ctx, second.ID)
	if err != nil || remaining == nil || remaining.LogoRef != "internal:logo-1" {
		t.Fatalf("expected second project to keep its logo ref, got %#v, %v", remaining, err)
	}
	data, err := st.Get(ctx, "logo-1")
	if err != nil || string(data) != "png" {
		t.Fatalf("shared logo must survive project deletion, got %q, %v", data, err)
	}
}
