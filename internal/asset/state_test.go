package asset

import "testing"

func TestReduceStart(t *testing.T) {
	tests := []struct {
		name  string
		ref   string
		phase Phase
		url   string
	}{
		{name: "empty", ref: "", phase: PhaseIdle},
		{name: "internal", ref: "internal:logo-1", phase: PhaseLoading},
		{name: "data passthrough", ref: "data:image/png;base64,AA", phase: PhaseResolved, url: "data:image/png;base64,AA"},
		{name: "remote passthrough", ref: "https://cdn.example.com/x.png", phase: PhaseResolved, url: "https://cdn.example.com/x.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Reduce(State{}, Event{Kind: EventStart, Generation: 1, Reference: tt.ref})
			if s.Phase != tt.phase {
				t.Fatalf("expected phase %s, got %s", tt.phase, s.Phase)
			}
			if s.ObjectURL != tt.url {
				t.Fatalf("expected url %q, got %q", tt.url, s.ObjectURL)
			}
			if s.Owned {
				t.Fatal("passthrough urls must not be owned")
			}
		})
	}
}

func TestReduceStartEmptyInternalIDFails(t *testing.T) {
	s := Reduce(State{}, Event{Kind: EventStart, Generation: 1, Reference: "internal:"})
	if s.Phase != PhaseFailed || s.Error != ErrMsgNotFound {
		t.Fatalf("expected not-found failure, got %#v", s)
	}
	if s.ObjectURL != "" {
		t.Fatalf("expected no url, got %q", s.ObjectURL)
	}
	if v := ViewOf(s, 3); v.ObjectURL != "" || v.IsLoading || v.Error != ErrMsgNotFound {
		t.Fatalf("unexpected view %#v", v)
	}
}

func TestReduceIgnoresStaleGeneration(t *testing.T) {
	s := Reduce(State{}, Event{Kind: EventStart, Generation: 1, Reference: "internal:a"})
	s = Reduce(s, Event{Kind: EventStart, Generation: 2, Reference: "internal:b"})

	stale := Reduce(s, Event{Kind: EventLoaded, Generation: 1, ObjectURL: "blob:x/a"})
	if stale != s {
		t.Fatalf("stale event changed state: %#v", stale)
	}

	fresh := Reduce(s, Event{Kind: EventLoaded, Generation: 2, ObjectURL: "blob:x/b"})
	if fresh.Phase != PhaseResolved || fresh.ObjectURL != "blob:x/b" || !fresh.Owned {
		t.Fatalf("unexpected fresh state: %#v", fresh)
	}

	// A second completion for a settled generation is ignored too.
	again := Reduce(fresh, Event{Kind: EventFailed, Generation: 2})
	if again != fresh {
		t.Fatalf("completion after settle changed state: %#v", again)
	}
}

func TestReduceFailures(t *testing.T) {
	loading := Reduce(State{}, Event{Kind: EventStart, Generation: 3, Reference: "internal:a", Attempt: 1})

	missing := Reduce(loading, Event{Kind: EventMissing, Generation: 3})
	if missing.Phase != PhaseFailed || missing.Error != ErrMsgNotFound {
		t.Fatalf("unexpected missing state: %#v", missing)
	}
	failed := Reduce(loading, Event{Kind: EventFailed, Generation: 3})
	if failed.Phase != PhaseFailed || failed.Error != ErrMsgLoadFailed {
		t.Fatalf("unexpected failed state: %#v", failed)
	}

	v := ViewOf(failed, 3)
	if !v.CanRetry || v.Attempt != 1 || v.Error != ErrMsgLoadFailed {
		t.Fatalf("unexpected view: %#v", v)
	}
	if ViewOf(failed, 1).CanRetry {
		t.Fatal("retry budget of 1 should be spent at attempt 1")
	}
}

func TestViewOfLoading(t *testing.T) {
	v := ViewOf(State{Phase: PhaseLoading}, 3)
	if !v.IsLoading || v.ObjectURL != "" || v.Error != "" {
		t.Fatalf("unexpected loading view: %#v", v)
	}
}
