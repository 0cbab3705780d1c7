package notify

import "time"

// Countdown tracks visible time of one notification across pauses. Resuming
// shifts the effective start forward by the paused span, so the total running
// time before expiry always equals the duration.
type Countdown struct {
	duration time.Duration
	start    time.Time
	pausedAt time.Time
	paused   bool
}

// NewCountdown starts a running countdown at now.
func NewCountdown(now time.Time, duration time.Duration) Countdown {
	return Countdown{duration: duration, start: now}
}

// Pause freezes elapsed time. It reports false if already paused.
func (c *Countdown) Pause(now time.Time) bool {
	if c.paused {
		return false
	}
	c.paused = true
	c.pausedAt = now
	return true
}

// Resume restarts the countdown. It reports false if not paused.
func (c *Countdown) Resume(now time.Time) bool {
	if !c.paused {
		return false
	}
	c.start = c.start.Add(now.Sub(c.pausedAt))
	c.paused = false
	c.pausedAt = time.Time{}
	return true
}

// Paused reports whether the countdown is frozen.
func (c Countdown) Paused() bool { return c.paused }

// Duration returns the configured total running time.
func (c Countdown) Duration() time.Duration { return c.duration }

// Elapsed returns running time accumulated so far.
func (c Countdown) Elapsed(now time.Time) time.Duration {
	end := now
	if c.paused {
		end = c.pausedAt
	}
	elapsed := end.Sub(c.start)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Remaining returns the running time left before expiry.
func (c Countdown) Remaining(now time.Time) time.Duration {
	left := c.duration - c.Elapsed(now)
	if left < 0 {
		return 0
	}
	return left
}

// Progress returns 100 × (1 − elapsed/duration), clamped to [0, 100].
func (c Countdown) Progress(now time.Time) float64 {
	if c.duration <= 0 {
		return 0
	}
	p := 100 * (1 - float64(c.Elapsed(now))/float64(c.duration))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
