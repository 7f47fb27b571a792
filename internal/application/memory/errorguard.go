package memory

import (
	"sync"
	"time"
)

// ErrorGuard is a sliding-window circuit breaker: once Threshold errors have
// landed within Window, it activates and stays active for Cooldown before
// auto-resetting. Grounded on the Python original's ErrorGuard (a deque of
// error timestamps); Go has no stdlib deque, so this keeps a plain slice and
// prunes it on each record/check instead.
type ErrorGuard struct {
	mu sync.Mutex

	window    time.Duration
	threshold int
	cooldown  time.Duration

	timestamps []time.Time
	activeAt   *time.Time
}

func NewErrorGuard(window time.Duration, threshold int, cooldown time.Duration) *ErrorGuard {
	return &ErrorGuard{window: window, threshold: threshold, cooldown: cooldown}
}

// RecordError appends now to the window and activates the guard if the
// threshold is met. Unlike the Python signature it takes no error_type tag;
// every recorded error counts the same.
func (g *ErrorGuard) RecordError(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune(now)
	g.timestamps = append(g.timestamps, now)

	if g.activeAt == nil && len(g.timestamps) >= g.threshold {
		t := now
		g.activeAt = &t
	}
}

// IsActive reports whether the guard is currently tripped, auto-deactivating
// (and clearing its window) once Cooldown has elapsed since activation.
func (g *ErrorGuard) IsActive(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.activeAt == nil {
		return false
	}
	if now.Sub(*g.activeAt) >= g.cooldown {
		g.activeAt = nil
		g.timestamps = nil
		return false
	}
	return true
}

// ForceReset clears the guard's window and active state unconditionally.
func (g *ErrorGuard) ForceReset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timestamps = nil
	g.activeAt = nil
}

// Status reports the current error count within the window and whether the
// guard is active, without mutating cooldown expiry (used for diagnostics).
func (g *ErrorGuard) Status(now time.Time) (errorCount int, active bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(now)
	return len(g.timestamps), g.activeAt != nil
}

func (g *ErrorGuard) prune(now time.Time) {
	cutoff := now.Add(-g.window)
	i := 0
	for ; i < len(g.timestamps); i++ {
		if g.timestamps[i].After(cutoff) {
			break
		}
	}
	g.timestamps = g.timestamps[i:]
}
