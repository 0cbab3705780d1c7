package deletion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"blueprint/internal/notify"
)

const (
	DefaultGrace         = 5 * time.Second
	defaultDeleteTimeout = 30 * time.Second
	defaultUndoLabel     = "Undo"
)

// DeletionError reports a rejected OnDelete call.
type DeletionError struct {
	ID  string
	Err error
}

func (e *DeletionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("delete %q: %v", e.ID, e.Err)
}

func (e *DeletionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Options configures a Coordinator. GetID and OnDelete are required.
type Options[T any] struct {
	GetID     func(T) string
	OnDelete  func(context.Context, T) error
	OnRestore func(T)

	Grace         time.Duration
	DeleteTimeout time.Duration

	// Message renders the undo notification text.
	Message   func(T) string
	UndoLabel string
	// ErrorMessage renders the notification published when OnDelete fails.
	ErrorMessage func(T, error) string

	Bus    notify.Publisher
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// Pending is one deletion waiting out its grace period.
type Pending[T any] struct {
	ID          string        `json:"id" yaml:"id"`
	Item        T             `json:"item" yaml:"item"`
	ScheduledAt time.Time     `json:"scheduled_at" yaml:"scheduled_at"`
	Grace       time.Duration `json:"grace" yaml:"grace"`
}

type entry[T any] struct {
	Pending[T]
	token     uint64
	timer     clockwork.Timer
	executing bool
}

// Coordinator defers deletions behind an undo window. Each item id has at
// most one pending deletion; different ids are independent.
type Coordinator[T any] struct {
	opts   Options[T]
	logger *slog.Logger

	ctx      context.Context
	shutdown context.CancelFunc

	mu      sync.Mutex
	pending map[string]*entry[T]
	seq     uint64
	closed  bool
	running sync.WaitGroup
}

// New validates opts and returns a coordinator.
func New[T any](opts Options[T]) (*Coordinator[T], error) {
	if opts.GetID == nil {
		return nil, errors.New("deletion: GetID is required")
	}
	if opts.OnDelete == nil {
		return nil, errors.New("deletion: OnDelete is required")
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.DeleteTimeout <= 0 {
		opts.DeleteTimeout = defaultDeleteTimeout
	}
	if opts.UndoLabel == "" {
		opts.UndoLabel = defaultUndoLabel
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator[T]{
		opts:     opts,
		logger:   logger.With("component", "deletion"),
		ctx:      ctx,
		shutdown: cancel,
		pending:  make(map[string]*entry[T]),
	}, nil
}

// InitiateDelete schedules item for deletion after the grace period and
// publishes an undo notification. A pending deletion of the same id is
// restored first. It returns the item id.
func (c *Coordinator[T]) InitiateDelete(item T) string {
	id := c.opts.GetID(item)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return id
	}
	var superseded *entry[T]
	if prev, ok := c.pending[id]; ok {
		if prev.executing {
			c.mu.Unlock()
			c.logger.Debug("deletion already executing", "id", id)
			return id
		}
		stopTimer(prev.timer)
		delete(c.pending, id)
		superseded = prev
	}

	c.seq++
	e := &entry[T]{
		Pending: Pending[T]{
			ID:          id,
			Item:        item,
			ScheduledAt: c.opts.Clock.Now(),
			Grace:       c.opts.Grace,
		},
		token: c.seq,
	}
	token := e.token
	c.pending[id] = e
	e.timer = c.opts.Clock.AfterFunc(c.opts.Grace, func() { c.fire(id, token) })
	c.mu.Unlock()

	if superseded != nil {
		c.logger.Debug("superseded pending deletion", "id", id)
		c.restore(superseded.Item)
	}

	c.logger.Info("deletion scheduled", "id", id, "grace", c.opts.Grace)
	if c.opts.Bus != nil {
		notify.Undo(c.opts.Bus, c.message(item), func() { c.cancel(id, token) }, c.opts.UndoLabel)
	}
	return id
}

// Cancel restores the pending deletion of id. It reports false when nothing
// cancellable is pending for id.
func (c *Coordinator[T]) Cancel(id string) bool {
	return c.cancel(id, 0)
}

// CancelAllPending restores every deletion still in its grace period.
func (c *Coordinator[T]) CancelAllPending() int {
	c.mu.Lock()
	restored := make([]*entry[T], 0, len(c.pending))
	for id, e := range c.pending {
		if e.executing {
			continue
		}
		stopTimer(e.timer)
		delete(c.pending, id)
		restored = append(restored, e)
	}
	c.mu.Unlock()

	sort.Slice(restored, func(i, j int) bool { return restored[i].token < restored[j].token })
	for _, e := range restored {
		c.restore(e.Item)
	}
	return len(restored)
}

// IsPendingDelete reports whether item is waiting out its grace period or
// being deleted.
func (c *Coordinator[T]) IsPendingDelete(item T) bool {
	return c.IsPending(c.opts.GetID(item))
}

// IsPending reports whether id has a pending or executing deletion.
func (c *Coordinator[T]) IsPending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

// PendingItems returns pending items in scheduling order.
func (c *Coordinator[T]) PendingItems() []T {
	list := c.PendingList()
	out := make([]T, 0, len(list))
	for _, p := range list {
		out = append(out, p.Item)
	}
	return out
}

// PendingList returns pending deletions in scheduling order.
func (c *Coordinator[T]) PendingList() []Pending[T] {
	c.mu.Lock()
	entries := make([]*entry[T], 0, len(c.pending))
	for _, e := range c.pending {
		entries = append(entries, e)
	}
	c.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].token < entries[j].token })
	out := make([]Pending[T], 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Pending)
	}
	return out
}

// Close drops every pending deletion without deleting or restoring it and
// waits for executing deletions to finish.
func (c *Coordinator[T]) Close() {
	c.mu.Lock()
	c.closed = true
	for id, e := range c.pending {
		if e.executing {
			continue
		}
		stopTimer(e.timer)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	c.running.Wait()
	c.shutdown()
}

// cancel restores id when token matches its pending entry; token 0 matches any.
func (c *Coordinator[T]) cancel(id string, token uint64) bool {
	c.mu.Lock()
	e, ok := c.pending[id]
	if !ok || e.executing || (token != 0 && e.token != token) {
		c.mu.Unlock()
		return false
	}
	stopTimer(e.timer)
	delete(c.pending, id)
	c.mu.Unlock()

	c.logger.Info("deletion cancelled", "id", id)
	c.restore(e.Item)
	return true
}

func (c *Coordinator[T]) fire(id string, token uint64) {
	c.mu.Lock()
	e, ok := c.pending[id]
	if !ok || e.token != token || e.executing || c.closed {
		c.mu.Unlock()
		return
	}
	e.executing = true
	c.running.Add(1)
	c.mu.Unlock()
	defer c.running.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.opts.DeleteTimeout)
	err := c.opts.OnDelete(ctx, e.Item)
	cancel()

	c.mu.Lock()
	if current, ok := c.pending[id]; ok && current == e {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if err == nil {
		c.logger.Info("deletion committed", "id", id)
		return
	}

	delErr := &DeletionError{ID: id, Err: err}
	c.logger.Error("deletion failed", "id", id, "error", err)
	if c.opts.Bus != nil {
		notify.Error(c.opts.Bus, c.errorMessage(e.Item, delErr))
	}
}

func (c *Coordinator[T]) restore(item T) {
	if c.opts.OnRestore != nil {
		c.opts.OnRestore(item)
	}
}

func (c *Coordinator[T]) message(item T) string {
	if c.opts.Message != nil {
		return c.opts.Message(item)
	}
	return fmt.Sprintf("Deleted %s", c.opts.GetID(item))
}

func (c *Coordinator[T]) errorMessage(item T, err *DeletionError) string {
	if c.opts.ErrorMessage != nil {
		return c.opts.ErrorMessage(item, err)
	}
	return fmt.Sprintf("Failed to delete %s: %v", err.ID, err.Err)
}

func stopTimer(t clockwork.Timer) {
	if t != nil {
		t.Stop()
	}
}
