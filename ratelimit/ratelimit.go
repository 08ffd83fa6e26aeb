package ratelimit

import "time"

// Verdict is the outcome of a rate check.
type Verdict int

const (
	Allow Verdict = iota
	Warn
	Block
)

func (v Verdict) String() string {
	switch v {
	case Warn:
		return "warn"
	case Block:
		return "block"
	default:
		return "allow"
	}
}

// Window holds one user's recent message timestamps plus escalation state.
// A session owns one Window; the Limiter mutates it under the session's
// turn lock, so the Window itself carries no locking.
type Window struct {
	Stamps        []time.Time
	WarningIssued bool
	BlockedUntil  time.Time // zero value = not blocked
}

// Blocked reports whether a cooldown horizon is still in the future.
func (w *Window) Blocked(now time.Time) bool {
	return !w.BlockedUntil.IsZero() && now.Before(w.BlockedUntil)
}

// Limiter applies a trailing-window message budget with warn -> block
// escalation and a cooldown horizon.
type Limiter struct {
	window    time.Duration
	threshold int
	cooldown  time.Duration
}

// New creates a limiter. threshold is the number of messages allowed inside
// the trailing window before escalation starts.
func New(window time.Duration, threshold int, cooldown time.Duration) *Limiter {
	return &Limiter{
		window:    window,
		threshold: threshold,
		cooldown:  cooldown,
	}
}

// Check records one message at now and returns the verdict. While the
// cooldown horizon is in the future every call returns Block without
// re-evaluating the window. Once the horizon passes, the window and the
// warning flag are cleared and counting starts over. Warned and blocked
// messages still land in the window so a user who keeps hammering past a
// warning escalates to a block.
func (l *Limiter) Check(w *Window, now time.Time) Verdict {
	if !w.BlockedUntil.IsZero() {
		if now.Before(w.BlockedUntil) {
			return Block
		}
		// Cooldown elapsed: reset is scoped to the window, not the session.
		w.Stamps = w.Stamps[:0]
		w.WarningIssued = false
		w.BlockedUntil = time.Time{}
	}

	l.prune(w, now)
	w.Stamps = append(w.Stamps, now)

	if len(w.Stamps) <= l.threshold {
		// Burst subsided before a block landed; the warning no longer stands.
		w.WarningIssued = false
		return Allow
	}

	if w.WarningIssued {
		w.BlockedUntil = now.Add(l.cooldown)
		return Block
	}
	w.WarningIssued = true
	return Warn
}

// prune drops timestamps older than the trailing window.
func (l *Limiter) prune(w *Window, now time.Time) {
	cutoff := now.Add(-l.window)
	keep := w.Stamps[:0]
	for _, ts := range w.Stamps {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	w.Stamps = keep
}
