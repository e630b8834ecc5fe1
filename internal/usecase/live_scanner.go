package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"PatternPull/internal/domain/models"
	domrepo "PatternPull/internal/domain/repository"
	"PatternPull/internal/store"
	applogger "PatternPull/pkg/logger"
)

const (
	// DefaultScanInterval is the live cadence between scan cycles.
	DefaultScanInterval = 5 * time.Minute

	// DefaultInitialDelay lets windows populate before the first cycle.
	DefaultInitialDelay = 1 * time.Minute
)

// LiveScanner runs all active patterns against every tracked ticker on a
// fixed cadence. Cycles never overlap: a trigger while a cycle is running
// is logged and dropped, not queued.
type LiveScanner struct {
	windows    *store.WindowStore
	evaluator  *PatternEvaluator
	tracker    *SignalTracker
	dispatcher *AlertDispatcher
	metrics    domrepo.Metrics
	l          *applogger.Logger

	interval     time.Duration
	initialDelay time.Duration

	running int32 // re-entrancy guard for a single cycle
	cycles  uint64
	lastAt  atomic.Int64 // unix nanos of last completed cycle

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// ScannerOption configures a LiveScanner.
type ScannerOption func(*LiveScanner)

// WithScanInterval overrides the cycle cadence.
func WithScanInterval(d time.Duration) ScannerOption {
	return func(s *LiveScanner) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithInitialDelay overrides the startup delay before the first cycle.
func WithInitialDelay(d time.Duration) ScannerOption {
	return func(s *LiveScanner) {
		if d >= 0 {
			s.initialDelay = d
		}
	}
}

// WithScannerMetrics attaches a metrics recorder.
func WithScannerMetrics(m domrepo.Metrics) ScannerOption {
	return func(s *LiveScanner) { s.metrics = m }
}

// NewLiveScanner wires the scan loop over the window store, pattern
// evaluator, dedup tracker and alert dispatcher.
func NewLiveScanner(
	windows *store.WindowStore,
	evaluator *PatternEvaluator,
	tracker *SignalTracker,
	dispatcher *AlertDispatcher,
	l *applogger.Logger,
	opts ...ScannerOption,
) *LiveScanner {
	s := &LiveScanner{
		windows:      windows,
		evaluator:    evaluator,
		tracker:      tracker,
		dispatcher:   dispatcher,
		l:            l,
		interval:     DefaultScanInterval,
		initialDelay: DefaultInitialDelay,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the periodic loop. It returns immediately; cycles run on a
// background goroutine until Stop.
func (s *LiveScanner) Start(ctx context.Context) {
	go func() {
		defer close(s.doneCh)

		select {
		case <-time.After(s.initialDelay):
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunCycle(ctx)
		for {
			select {
			case <-ticker.C:
				s.RunCycle(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the timer. An in-flight cycle finishes on its own.
func (s *LiveScanner) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

// RunCycle executes one scan cycle. Re-entrant triggers are no-ops.
func (s *LiveScanner) RunCycle(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		if s.l != nil {
			s.l.Warn("scan cycle already running, trigger dropped")
		}
		return
	}
	defer atomic.StoreInt32(&s.running, 0)

	start := time.Now()
	tickers := s.windows.Tickers()
	emitted := 0

	for _, ticker := range tickers {
		state, ok := s.windows.Get(ticker)
		if !ok {
			continue
		}
		for _, sig := range s.evaluator.Evaluate(state) {
			if !s.tracker.IsNew(sig) {
				continue
			}
			s.tracker.Add(sig)
			emitted++
			if s.metrics != nil {
				s.metrics.RecordSignal(sig.Pattern, sig.Ticker)
			}
			s.dispatcher.Dispatch(ctx, sig)
		}
	}

	atomic.AddUint64(&s.cycles, 1)
	s.lastAt.Store(time.Now().UnixNano())

	if s.metrics != nil {
		s.metrics.RecordScanCycle(time.Since(start).Seconds())
		s.metrics.SetTrackedTickers(len(tickers))
		s.metrics.SetActiveSignals(s.tracker.ActiveCount())
	}
	if s.l != nil {
		s.l.Info("scan cycle complete",
			applogger.Int("tickers", len(tickers)),
			applogger.Int("signals", emitted),
			applogger.Duration("took", time.Since(start)))
	}
}

// Stats returns the heartbeat snapshot for the observability surface.
func (s *LiveScanner) Stats() models.ScanStats {
	var last time.Time
	if ns := s.lastAt.Load(); ns > 0 {
		last = time.Unix(0, ns)
	}
	return models.ScanStats{
		Cycles:         atomic.LoadUint64(&s.cycles),
		TrackedTickers: len(s.windows.Tickers()),
		ActiveSignals:  s.tracker.ActiveCount(),
		AvgBufferLen:   s.windows.AvgBufferLen(),
		LastCycleAt:    last,
	}
}
