package notify

import "time"

// DefaultBaseDuration is the display time of success and info notifications.
const DefaultBaseDuration = 4 * time.Second

// DurationFor returns how long a notification of sev stays visible and
// whether it auto-dismisses at all. Errors persist until dismissed.
func DurationFor(sev Severity, base time.Duration) (time.Duration, bool) {
	if base <= 0 {
		base = DefaultBaseDuration
	}
	switch sev {
	case SeverityError:
		return 0, false
	case SeverityUndo, SeverityWarning:
		return base * 3 / 2, true
	default:
		return base, true
	}
}
