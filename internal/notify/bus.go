package notify

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrSubscriberExists is returned when a second renderer subscribes.
var ErrSubscriberExists = errors.New("notification bus already has a subscriber")

const defaultUndoText = "Undo"

// Publisher accepts notification requests.
type Publisher interface {
	Publish(Event)
}

// Bus delivers published events to its single subscriber.
type Bus interface {
	Publisher
	Subscribe(fn func(Event)) (unsubscribe func(), err error)
}

// LocalBus is an in-process Bus. Events published without a subscriber are dropped.
type LocalBus struct {
	logger *slog.Logger

	mu  sync.RWMutex
	sub func(Event)
	seq int
}

// NewLocalBus creates an empty bus.
func NewLocalBus(logger *slog.Logger) *LocalBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBus{logger: logger.With("component", "notify_bus")}
}

// Publish hands ev to the subscriber on the caller's goroutine.
func (b *LocalBus) Publish(ev Event) {
	if ev.Type == "" {
		ev.Type = SeverityInfo
	}
	if ev.Type == SeverityUndo && ev.UndoText == "" {
		ev.UndoText = defaultUndoText
	}
	b.mu.RLock()
	sub := b.sub
	b.mu.RUnlock()
	if sub == nil {
		b.logger.Debug("dropping notification without subscriber", "severity", ev.Type, "message", ev.Message)
		return
	}
	sub(ev)
}

// Subscribe installs fn as the only subscriber.
func (b *LocalBus) Subscribe(fn func(Event)) (func(), error) {
	if fn == nil {
		return nil, errors.New("subscriber is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		return nil, ErrSubscriberExists
	}
	b.seq++
	mine := b.seq
	b.sub = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.seq == mine {
			b.sub = nil
		}
	}, nil
}

func Success(p Publisher, message string) { p.Publish(Event{Message: message, Type: SeveritySuccess}) }

func Error(p Publisher, message string) { p.Publish(Event{Message: message, Type: SeverityError}) }

func Info(p Publisher, message string) { p.Publish(Event{Message: message, Type: SeverityInfo}) }

func Warning(p Publisher, message string) { p.Publish(Event{Message: message, Type: SeverityWarning}) }

// Undo publishes an undo-capable notification.
func Undo(p Publisher, message string, onUndo func(), undoText string) {
	p.Publish(Event{Message: message, Type: SeverityUndo, OnUndo: onUndo, UndoText: undoText})
}
