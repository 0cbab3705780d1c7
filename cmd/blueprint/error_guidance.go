package main

import (
	"context"
	"errors"
	"net"

	"blueprint/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "quota_exceeded":
			lines = append(lines, "hint: remove unused assets (blueprint asset rm) or raise assets.max_bytes.")
		case "resource_exhausted":
			lines = append(lines, "hint: too many open resolutions; retry shortly.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify BLUEPRINT_API_URL points to a blueprint server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase BLUEPRINT_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a blueprint server is running at BLUEPRINT_API_URL.",
			"hint: start local server manually with: blueprint srv",
			"hint: you can increase BLUEPRINT_HTTP_TIMEOUT for slower environments.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
