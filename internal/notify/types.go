package notify

import (
	"fmt"
	"strings"
	"time"
)

// Severity selects styling and the auto-dismiss policy of a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityUndo    Severity = "undo"
)

// ParseSeverity validates a severity name.
func ParseSeverity(raw string) (Severity, error) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(raw))); sev {
	case SeveritySuccess, SeverityError, SeverityInfo, SeverityWarning, SeverityUndo:
		return sev, nil
	case "":
		return SeverityInfo, nil
	default:
		return "", fmt.Errorf("invalid severity %q", raw)
	}
}

// Event is a notification request carried by the bus.
type Event struct {
	Message  string
	Type     Severity
	OnUndo   func()
	UndoText string
}

// Notification is one entry of the active list.
type Notification struct {
	ID        string
	Message   string
	Severity  Severity
	UndoLabel string
	OnUndo    func()
	Exiting   bool
	CreatedAt time.Time
}

// View is the renderable state of a notification at one instant.
type View struct {
	ID          string   `json:"id" yaml:"id"`
	Message     string   `json:"message" yaml:"message"`
	Severity    Severity `json:"severity" yaml:"severity"`
	UndoLabel   string   `json:"undo_label,omitempty" yaml:"undo_label,omitempty"`
	HasUndo     bool     `json:"has_undo" yaml:"has_undo"`
	Exiting     bool     `json:"exiting" yaml:"exiting"`
	Paused      bool     `json:"paused" yaml:"paused"`
	AutoDismiss bool     `json:"auto_dismiss" yaml:"auto_dismiss"`
	// Progress is the remaining share of the countdown, 100 down to 0.
	Progress float64 `json:"progress" yaml:"progress"`
}
