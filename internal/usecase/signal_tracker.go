package usecase

import (
	"sync"
	"time"

	"PatternPull/internal/domain/models"
)

// DefaultCooldown is the minimum gap between identical (ticker, pattern)
// signals.
const DefaultCooldown = 5 * time.Minute

// SignalTracker suppresses repeated alerts for the same (ticker, pattern)
// inside a cooldown window and tracks which signals are still active.
type SignalTracker struct {
	mu       sync.Mutex
	cooldown time.Duration
	entries  map[trackerKey]trackedSignal
	now      func() time.Time
}

type trackerKey struct {
	ticker  string
	pattern string
}

type trackedSignal struct {
	signal    *models.Signal
	firstSeen time.Time
}

// TrackerOption configures a SignalTracker.
type TrackerOption func(*SignalTracker)

// WithCooldown overrides the dedup window.
func WithCooldown(d time.Duration) TrackerOption {
	return func(t *SignalTracker) {
		if d > 0 {
			t.cooldown = d
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *SignalTracker) { t.now = now }
}

// NewSignalTracker creates an empty tracker.
func NewSignalTracker(opts ...TrackerOption) *SignalTracker {
	t := &SignalTracker{
		cooldown: DefaultCooldown,
		entries:  make(map[trackerKey]trackedSignal),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IsNew reports whether the signal's (ticker, pattern) key has no tracked
// entry inside the cooldown window.
func (t *SignalTracker) IsNew(s *models.Signal) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[trackerKey{s.Ticker, s.Pattern}]
	if !ok {
		return true
	}
	return t.now().Sub(e.firstSeen) > t.cooldown
}

// Add inserts or replaces the tracked entry with a fresh first-seen stamp.
func (t *SignalTracker) Add(s *models.Signal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[trackerKey{s.Ticker, s.Pattern}] = trackedSignal{signal: s, firstSeen: t.now()}
}

// Active returns signals still inside the cooldown window and sweeps
// expired entries as it goes.
func (t *SignalTracker) Active() []*models.Signal {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	out := make([]*models.Signal, 0, len(t.entries))
	for k, e := range t.entries {
		if now.Sub(e.firstSeen) > t.cooldown {
			delete(t.entries, k)
			continue
		}
		out = append(out, e.signal)
	}
	return out
}

// ActiveCount returns the number of unexpired entries without sweeping.
func (t *SignalTracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	n := 0
	for _, e := range t.entries {
		if now.Sub(e.firstSeen) <= t.cooldown {
			n++
		}
	}
	return n
}
