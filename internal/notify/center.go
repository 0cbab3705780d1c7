package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultExitAnimation = 300 * time.Millisecond
	DefaultMaxVisible    = 5

	undoAnnouncementHint = " Undo action available."
)

// CenterOptions configures a Center.
type CenterOptions struct {
	Clock         clockwork.Clock
	BaseDuration  time.Duration
	ExitAnimation time.Duration
	MaxVisible    int
	Logger        *slog.Logger
	// OnChange is called after every change to the active list, outside the lock.
	OnChange func()
}

type entry struct {
	n         Notification
	countdown Countdown
	auto      bool
	undone    bool

	// armed identifies the live expiry timer; callbacks from older timers are ignored.
	armed   uint64
	expiry  clockwork.Timer
	removal clockwork.Timer
}

// Center owns the active notification list and drives each countdown.
// Timers refer to notifications by id only.
type Center struct {
	clock  clockwork.Clock
	opts   CenterOptions
	logger *slog.Logger

	mu          sync.Mutex
	items       []*entry
	byID        map[string]*entry
	seq         uint64
	closed      bool
	unsubscribe func()
}

// NewCenter creates a notification center.
func NewCenter(opts CenterOptions) *Center {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.BaseDuration <= 0 {
		opts.BaseDuration = DefaultBaseDuration
	}
	if opts.ExitAnimation <= 0 {
		opts.ExitAnimation = DefaultExitAnimation
	}
	if opts.MaxVisible <= 0 {
		opts.MaxVisible = DefaultMaxVisible
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Center{
		clock:  opts.Clock,
		opts:   opts,
		logger: logger.With("component", "notify_center"),
		byID:   make(map[string]*entry),
	}
}

// Attach makes the center the renderer subscribed to bus.
func (c *Center) Attach(bus Bus) error {
	unsubscribe, err := bus.Subscribe(func(ev Event) { c.Show(ev) })
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
	return nil
}

// Close detaches from the bus and stops every timer.
func (c *Center) Close() {
	c.mu.Lock()
	c.closed = true
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	for _, e := range c.items {
		stopTimer(e.expiry)
		stopTimer(e.removal)
	}
	c.items = nil
	c.byID = make(map[string]*entry)
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Show adds a notification for ev and returns its id.
func (c *Center) Show(ev Event) string {
	sev := ev.Type
	if sev == "" {
		sev = SeverityInfo
	}
	duration, auto := DurationFor(sev, c.opts.BaseDuration)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ""
	}
	now := c.clock.Now()
	e := &entry{
		n: Notification{
			ID:        uuid.NewString(),
			Message:   ev.Message,
			Severity:  sev,
			UndoLabel: ev.UndoText,
			OnUndo:    ev.OnUndo,
			CreatedAt: now,
		},
		countdown: NewCountdown(now, duration),
		auto:      auto,
	}
	c.items = append(c.items, e)
	c.byID[e.n.ID] = e
	if auto {
		c.armLocked(e)
	}
	c.trimLocked()
	c.mu.Unlock()

	c.logger.Debug("notification shown", "id", e.n.ID, "severity", sev, "duration", duration, "auto_dismiss", auto)
	c.changed()
	return e.n.ID
}

// Pause freezes the countdown of id, e.g. while hovered.
func (c *Center) Pause(id string) bool {
	c.mu.Lock()
	e, ok := c.byID[id]
	if !ok || e.n.Exiting || !e.auto || !e.countdown.Pause(c.clock.Now()) {
		c.mu.Unlock()
		return false
	}
	e.armed = 0
	stopTimer(e.expiry)
	e.expiry = nil
	c.mu.Unlock()
	c.changed()
	return true
}

// Resume continues the countdown of id with its remaining time intact.
func (c *Center) Resume(id string) bool {
	c.mu.Lock()
	e, ok := c.byID[id]
	if !ok || e.n.Exiting || !e.auto || !e.countdown.Resume(c.clock.Now()) {
		c.mu.Unlock()
		return false
	}
	c.armLocked(e)
	c.mu.Unlock()
	c.changed()
	return true
}

// Dismiss starts the exit of id. It reports false if id is unknown or already exiting.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	ok := c.dismissLocked(id)
	c.mu.Unlock()
	if ok {
		c.changed()
	}
	return ok
}

// Undo runs the undo callback of id at most once and dismisses it.
func (c *Center) Undo(id string) bool {
	c.mu.Lock()
	e, ok := c.byID[id]
	if !ok || e.n.Exiting || e.undone || e.n.OnUndo == nil {
		c.mu.Unlock()
		return false
	}
	e.undone = true
	fn := e.n.OnUndo
	c.dismissLocked(id)
	c.mu.Unlock()

	fn()
	c.changed()
	return true
}

// Progress returns the remaining countdown share of id.
func (c *Center) Progress(id string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byID[id]
	if !ok {
		return 0, false
	}
	return c.progressLocked(e), true
}

// Get returns the notification with id.
func (c *Center) Get(id string) (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byID[id]
	if !ok {
		return Notification{}, false
	}
	return e.n, true
}

// Snapshot returns the active list, oldest first.
func (c *Center) Snapshot() []View {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]View, 0, len(c.items))
	for _, e := range c.items {
		out = append(out, View{
			ID:          e.n.ID,
			Message:     e.n.Message,
			Severity:    e.n.Severity,
			UndoLabel:   e.n.UndoLabel,
			HasUndo:     e.n.OnUndo != nil && !e.undone,
			Exiting:     e.n.Exiting,
			Paused:      e.countdown.Paused(),
			AutoDismiss: e.auto,
			Progress:    c.progressLocked(e),
		})
	}
	return out
}

// Announcement returns the live-region text for the newest notification.
func (c *Center) Announcement() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return ""
	}
	n := c.items[len(c.items)-1].n
	if n.Severity == SeverityUndo {
		return n.Message + undoAnnouncementHint
	}
	return n.Message
}

func (c *Center) progressLocked(e *entry) float64 {
	if !e.auto {
		return 100
	}
	return e.countdown.Progress(c.clock.Now())
}

func (c *Center) armLocked(e *entry) {
	stopTimer(e.expiry)
	c.seq++
	e.armed = c.seq
	armed := e.armed
	id := e.n.ID
	e.expiry = c.clock.AfterFunc(e.countdown.Remaining(c.clock.Now()), func() {
		c.expire(id, armed)
	})
}

func (c *Center) expire(id string, armed uint64) {
	c.mu.Lock()
	e, ok := c.byID[id]
	if !ok || e.armed != armed || e.countdown.Paused() || e.n.Exiting {
		c.mu.Unlock()
		return
	}
	e.expiry = nil
	c.dismissLocked(id)
	c.mu.Unlock()

	c.logger.Debug("notification expired", "id", id)
	c.changed()
}

func (c *Center) dismissLocked(id string) bool {
	e, ok := c.byID[id]
	if !ok || e.n.Exiting {
		return false
	}
	e.n.Exiting = true
	e.armed = 0
	stopTimer(e.expiry)
	e.expiry = nil
	e.removal = c.clock.AfterFunc(c.opts.ExitAnimation, func() { c.remove(id, e) })
	return true
}

func (c *Center) remove(id string, e *entry) {
	c.mu.Lock()
	current, ok := c.byID[id]
	if !ok || current != e {
		c.mu.Unlock()
		return
	}
	stopTimer(e.expiry)
	delete(c.byID, id)
	for i, item := range c.items {
		if item == e {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	c.changed()
}

// trimLocked starts the exit of the oldest notifications beyond MaxVisible.
func (c *Center) trimLocked() {
	visible := 0
	for _, e := range c.items {
		if !e.n.Exiting {
			visible++
		}
	}
	for _, e := range c.items {
		if visible <= c.opts.MaxVisible {
			return
		}
		if e.n.Exiting {
			continue
		}
		c.dismissLocked(e.n.ID)
		visible--
	}
}

func (c *Center) changed() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}

func stopTimer(t clockwork.Timer) {
	if t != nil {
		t.Stop()
	}
}
