package asset

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"blueprint/internal/blobstore"
)

const (
	DefaultMaxRetries  = 3
	defaultLoadTimeout = 30 * time.Second
)

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMaxRetries bounds how many times a failed resolution may be retried.
func WithMaxRetries(n int) ResolverOption {
	return func(r *Resolver) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithLoadTimeout bounds a single blob store read.
func WithLoadTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.loadTimeout = d
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver turns asset references into renderable URLs for a single consumer.
// Object URLs it creates are revoked on re-resolution, retry and Close.
//
// Subscribers are called in publish order and must not call back into the
// Resolver synchronously.
type Resolver struct {
	store       blobstore.Store
	urls        *ObjectURLs
	logger      *slog.Logger
	maxRetries  int
	loadTimeout time.Duration

	mu         sync.Mutex
	state      State
	closed     bool
	cancelLoad context.CancelFunc
	subs       map[int]func(View)
	nextSub    int

	// reads counts store reads in flight; settle is closed and replaced
	// whenever one finishes.
	reads  int
	settle chan struct{}

	emitMu sync.Mutex
}

// NewResolver creates a resolver reading internal references from store.
func NewResolver(store blobstore.Store, urls *ObjectURLs, opts ...ResolverOption) *Resolver {
	if urls == nil {
		urls = NewObjectURLs("")
	}
	r := &Resolver{
		store:       store,
		urls:        urls,
		logger:      slog.Default(),
		maxRetries:  DefaultMaxRetries,
		loadTimeout: defaultLoadTimeout,
		subs:        make(map[int]func(View)),
		settle:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "asset_resolver")
	return r
}

// Resolve points the consumer at ref. Resolving the current reference again is a no-op.
func (r *Resolver) Resolve(ref string) {
	r.mu.Lock()
	if r.closed || (ref == r.state.Reference && r.state.Generation > 0) {
		r.mu.Unlock()
		return
	}
	r.startLocked(ref, 0)
}

// Retry restarts a failed resolution. It returns false when the view is not
// failed or the retry budget is spent.
func (r *Resolver) Retry() bool {
	r.mu.Lock()
	if r.closed || r.state.Phase != PhaseFailed || r.state.Attempt >= r.maxRetries {
		r.mu.Unlock()
		return false
	}
	r.startLocked(r.state.Reference, r.state.Attempt+1)
	return true
}

// View returns the current view.
func (r *Resolver) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ViewOf(r.state, r.maxRetries)
}

// State returns the current state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Subscribe registers fn for every published view.
func (r *Resolver) Subscribe(fn func(View)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// Wait blocks until no store read is in flight.
func (r *Resolver) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		if r.reads == 0 {
			r.mu.Unlock()
			return nil
		}
		settle := r.settle
		r.mu.Unlock()

		select {
		case <-settle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close tears the consumer down and revokes any object URL it owns.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	prev := r.state
	if r.cancelLoad != nil {
		r.cancelLoad()
		r.cancelLoad = nil
	}
	r.state = Reduce(prev, Event{Kind: EventClose, Generation: prev.Generation + 1})
	r.subs = make(map[int]func(View))
	r.mu.Unlock()

	r.release(prev)
}

// startLocked runs with r.mu held and releases it.
func (r *Resolver) startLocked(ref string, attempt int) {
	prev := r.state
	if r.cancelLoad != nil {
		r.cancelLoad()
		r.cancelLoad = nil
	}
	gen := prev.Generation + 1
	r.state = Reduce(prev, Event{Kind: EventStart, Generation: gen, Reference: ref, Attempt: attempt})

	if r.state.Phase == PhaseLoading {
		ctx, cancel := context.WithTimeout(context.Background(), r.loadTimeout)
		r.cancelLoad = cancel
		r.reads++
		go r.load(ctx, cancel, gen, ParseReference(ref).ID)
	}
	r.emitLocked()
	r.release(prev)
}

func (r *Resolver) load(ctx context.Context, cancel context.CancelFunc, gen uint64, id string) {
	defer cancel()

	data, err := r.store.Get(ctx, id)

	r.mu.Lock()
	r.reads--
	close(r.settle)
	r.settle = make(chan struct{})
	if r.closed || r.state.Generation != gen {
		r.mu.Unlock()
		r.logger.Debug("discarding stale asset load", "id", id, "generation", gen)
		return
	}

	var ev Event
	switch {
	case err != nil:
		r.logger.Warn("asset load failed", "id", id, "attempt", r.state.Attempt, "error", err)
		ev = Event{Kind: EventFailed, Generation: gen}
	case data == nil:
		r.logger.Debug("asset not found", "id", id)
		ev = Event{Kind: EventMissing, Generation: gen}
	default:
		ev = Event{Kind: EventLoaded, Generation: gen, ObjectURL: r.urls.Create(data)}
	}
	r.state = Reduce(r.state, ev)
	r.cancelLoad = nil
	r.emitLocked()
}

// emitLocked publishes the current view and releases r.mu. Holding emitMu
// across the hand-off keeps deliveries in state order.
func (r *Resolver) emitLocked() {
	view := ViewOf(r.state, r.maxRetries)
	subs := make([]func(View), 0, len(r.subs))
	for i := 0; i < r.nextSub; i++ {
		if fn, ok := r.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	r.emitMu.Lock()
	r.mu.Unlock()
	defer r.emitMu.Unlock()
	for _, fn := range subs {
		fn(view)
	}
}

// release revokes the object URL owned by a superseded state.
func (r *Resolver) release(prev State) {
	if !prev.Owned || prev.ObjectURL == "" {
		return
	}
	if !r.urls.Revoke(prev.ObjectURL) {
		r.logger.Warn("object url already revoked", "url", prev.ObjectURL)
	}
}
