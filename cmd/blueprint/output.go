package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"blueprint/internal/api"
	"blueprint/internal/format"
)

// outputMode selects structured output over plain text.
type outputMode struct {
	JSON bool
	YAML bool
}

func (m *outputMode) Structured() bool {
	return m != nil && (m.JSON || m.YAML)
}

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeStructured(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func formatAssetLine(a api.AssetResponse) string {
	return fmt.Sprintf("%s  %s  %s", a.ID, humanize.IBytes(uint64(a.SizeBytes)), formatTime(a.UpdatedAt))
}

func formatProjectLine(p api.ProjectResponse) string {
	line := fmt.Sprintf("%s  %s", p.ID, p.Name)
	if p.LogoRef != "" {
		line += "  logo=" + p.LogoRef
	}
	if p.PendingDelete {
		line += "  (pending delete)"
	}
	return line
}

func formatResolution(r api.ResolutionResponse) string {
	switch {
	case r.IsLoading:
		return fmt.Sprintf("%s: loading (attempt %d)", r.Ref, r.Attempt)
	case r.Error != "":
		retry := "no retries left"
		if r.CanRetry {
			retry = "retry available"
		}
		return fmt.Sprintf("%s: %s (attempt %d, %s)", r.Ref, r.Error, r.Attempt, retry)
	case r.ObjectURL != "":
		return fmt.Sprintf("%s: %s", r.Ref, r.ObjectURL)
	default:
		return fmt.Sprintf("%s: idle", r.Ref)
	}
}

func formatNotificationLine(n api.NotificationResponse) string {
	line := fmt.Sprintf("%s  [%s] %s", n.ID, n.Severity, n.Message)
	if n.HasUndo {
		line += fmt.Sprintf("  (%s available)", n.UndoLabel)
	}
	switch {
	case n.Exiting:
		line += "  exiting"
	case n.Paused:
		line += "  paused"
	case n.AutoDismiss:
		line += fmt.Sprintf("  %.0f%%", n.Progress)
	}
	return line
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatRelative(t time.Time) string {
	return humanize.Time(t)
}
