// Package store owns per-ticker sliding windows of bars and the indicators
// derived from them. It is the only shared mutable state on the live path;
// all access goes through per-ticker locks so ingestion for different
// tickers never serializes and readers always see a consistent snapshot.
package store

import (
	"sort"
	"sync"

	"PatternPull/internal/domain/models"
	drepo "PatternPull/internal/domain/repository"
)

const (
	// DefaultCapacity bounds each ticker's window; the oldest bar is
	// evicted once the window is full.
	DefaultCapacity = 300

	smaShortWindow = 10
	smaLongWindow  = 30
	avgVolWindow   = 20
	momentumWindow = 10
)

// WindowStore tracks a bounded, time-ordered bar window per ticker.
type WindowStore struct {
	mu       sync.RWMutex
	states   map[string]*tickerState
	capacity int
	metrics  drepo.Metrics
}

// Option configures a WindowStore.
type Option func(*WindowStore)

// WithCapacity overrides the per-ticker window capacity.
func WithCapacity(n int) Option {
	return func(s *WindowStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m drepo.Metrics) Option {
	return func(s *WindowStore) { s.metrics = m }
}

// New creates an empty WindowStore.
func New(opts ...Option) *WindowStore {
	s := &WindowStore{
		states:   make(map[string]*tickerState),
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest appends a bar to the ticker's window. Bars must arrive in strictly
// increasing timestamp order per ticker; out-of-order or duplicate bars are
// dropped without touching indicators or metadata. Returns true if the bar
// was accepted.
func (s *WindowStore) Ingest(ticker string, bar models.Bar) bool {
	st := s.stateFor(ticker)

	st.mu.Lock()
	accepted := st.ingest(bar, s.capacity)
	st.mu.Unlock()

	if s.metrics != nil {
		if accepted {
			s.metrics.RecordBarIngested(ticker)
			s.metrics.RecordLastPrice(ticker, bar.Close)
		} else {
			s.metrics.RecordBarRejected("out_of_order")
		}
	}
	return accepted
}

// Get returns a consistent snapshot of the ticker's state, or false if the
// ticker has never been ingested.
func (s *WindowStore) Get(ticker string) (*models.TickerState, bool) {
	s.mu.RLock()
	st, ok := s.states[ticker]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	st.mu.Lock()
	snap := st.snapshot(ticker)
	st.mu.Unlock()
	return snap, true
}

// Tickers returns the sorted set of tracked tickers.
func (s *WindowStore) Tickers() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.states))
	for t := range s.states {
		out = append(out, t)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// AvgBufferLen reports the mean window length across tracked tickers, for
// the scanner heartbeat.
func (s *WindowStore) AvgBufferLen() float64 {
	s.mu.RLock()
	states := make([]*tickerState, 0, len(s.states))
	for _, st := range s.states {
		states = append(states, st)
	}
	s.mu.RUnlock()

	if len(states) == 0 {
		return 0
	}
	total := 0
	for _, st := range states {
		st.mu.Lock()
		total += len(st.bars)
		st.mu.Unlock()
	}
	return float64(total) / float64(len(states))
}

func (s *WindowStore) stateFor(ticker string) *tickerState {
	s.mu.RLock()
	st, ok := s.states[ticker]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.states[ticker]; ok {
		return st
	}
	st = newTickerState()
	s.states[ticker] = st
	return st
}

// BuildState replays bars in order through a fresh ticker state and returns
// the resulting snapshot. The replay engine uses this to hand patterns the
// exact state a live window would hold after seeing only those bars.
func BuildState(ticker string, bars []models.Bar, capacity int) *models.TickerState {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	st := newTickerState()
	for _, b := range bars {
		st.ingest(b, capacity)
	}
	return st.snapshot(ticker)
}
