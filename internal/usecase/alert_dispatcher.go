package usecase

import (
	"context"
	"sync"

	domrepo "PatternPull/internal/domain/repository"
	"PatternPull/internal/service/ratelimit"
	applogger "PatternPull/pkg/logger"

	"PatternPull/internal/domain/models"
)

// AlertFilter restricts which signals reach the sinks. Zero values mean
// unrestricted.
type AlertFilter struct {
	MinConfidence float64
	Patterns      []string // allowlist; empty = all
	Tickers       []string // allowlist; empty = all
}

func (f AlertFilter) allows(s *models.Signal) bool {
	if s.Confidence < f.MinConfidence {
		return false
	}
	if len(f.Patterns) > 0 && !contains(f.Patterns, s.Pattern) {
		return false
	}
	if len(f.Tickers) > 0 && !contains(f.Tickers, s.Ticker) {
		return false
	}
	return true
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// AlertDispatcher fans accepted signals out to named sinks. One sink's
// failure never blocks delivery to the others.
type AlertDispatcher struct {
	mu      sync.RWMutex
	order   []string
	sinks   map[string]*sinkEntry
	filter  AlertFilter
	limiter *ratelimit.Limiter
	maxRPS  float64
	l       *applogger.Logger
	metrics domrepo.Metrics
}

type sinkEntry struct {
	sink    domrepo.AlertSink
	enabled bool
}

// DispatcherOption configures an AlertDispatcher.
type DispatcherOption func(*AlertDispatcher)

// WithFilter sets the delivery filter.
func WithFilter(f AlertFilter) DispatcherOption {
	return func(d *AlertDispatcher) { d.filter = f }
}

// WithDispatchRate caps deliveries per sink per second. Zero disables the cap.
func WithDispatchRate(perSec float64) DispatcherOption {
	return func(d *AlertDispatcher) { d.maxRPS = perSec }
}

// WithDispatchMetrics attaches a metrics recorder.
func WithDispatchMetrics(m domrepo.Metrics) DispatcherOption {
	return func(d *AlertDispatcher) { d.metrics = m }
}

// NewAlertDispatcher creates a dispatcher with no sinks registered.
func NewAlertDispatcher(l *applogger.Logger, opts ...DispatcherOption) *AlertDispatcher {
	d := &AlertDispatcher{
		sinks:   make(map[string]*sinkEntry),
		limiter: ratelimit.New(),
		l:       l,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddSink registers a sink, enabled. Duplicate names replace the sink.
func (d *AlertDispatcher) AddSink(s domrepo.AlertSink) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := s.Name()
	if e, ok := d.sinks[name]; ok {
		if d.l != nil {
			d.l.Warn("alert sink replaced", applogger.String("sink", name))
		}
		e.sink = s
		return
	}
	d.sinks[name] = &sinkEntry{sink: s, enabled: true}
	d.order = append(d.order, name)
}

// EnableSink turns a sink on.
func (d *AlertDispatcher) EnableSink(name string) { d.setEnabled(name, true) }

// DisableSink keeps the sink registered but skips it during fan-out.
func (d *AlertDispatcher) DisableSink(name string) { d.setEnabled(name, false) }

func (d *AlertDispatcher) setEnabled(name string, v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.sinks[name]; ok {
		e.enabled = v
	}
}

// Dispatch applies the filter once, then fans the signal out to every
// enabled sink. Sink errors are logged and counted, never propagated.
func (d *AlertDispatcher) Dispatch(ctx context.Context, s *models.Signal) {
	if !d.filter.allows(s) {
		return
	}

	d.mu.RLock()
	entries := make([]domrepo.AlertSink, 0, len(d.order))
	for _, name := range d.order {
		if e := d.sinks[name]; e != nil && e.enabled {
			entries = append(entries, e.sink)
		}
	}
	d.mu.RUnlock()

	for _, sink := range entries {
		if d.maxRPS > 0 && !d.limiter.Allow("sink_"+sink.Name(), d.maxRPS, d.maxRPS) {
			if d.l != nil {
				d.l.Warn("alert sink throttled",
					applogger.String("sink", sink.Name()),
					applogger.String("ticker", s.Ticker))
			}
			continue
		}
		err := sink.Deliver(ctx, s)
		if d.metrics != nil {
			d.metrics.RecordAlertDelivery(sink.Name(), err == nil)
		}
		if err != nil && d.l != nil {
			d.l.Error("alert delivery failed",
				applogger.String("sink", sink.Name()),
				applogger.String("ticker", s.Ticker),
				applogger.String("pattern", s.Pattern),
				applogger.Error(err))
		}
	}
}
