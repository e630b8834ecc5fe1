package usecase

import (
	"fmt"
	"time"

	"PatternPull/internal/domain/models"
	"PatternPull/internal/pattern"
	scanmetrics "PatternPull/internal/service/metrics"
	applogger "PatternPull/pkg/logger"
)

// PatternEvaluator runs every active pattern against one ticker snapshot,
// applying the minBars and pre-filter gates and isolating pattern panics so
// one misbehaving pattern cannot take down a scan cycle.
type PatternEvaluator struct {
	registry *pattern.Registry
	l        *applogger.Logger
}

func NewPatternEvaluator(registry *pattern.Registry, l *applogger.Logger) *PatternEvaluator {
	scanmetrics.Register()
	return &PatternEvaluator{registry: registry, l: l}
}

// Evaluate returns the signals produced for this snapshot, in registry
// order. Errors (pattern panics) are collected per pattern, logged, and
// treated as "no signal" for that pair.
func (e *PatternEvaluator) Evaluate(state *models.TickerState) []*models.Signal {
	var out []*models.Signal
	for _, p := range e.registry.Active() {
		if state.BarCount() < p.MinBars() {
			continue
		}
		if pf, ok := p.(pattern.PreFilter); ok && !pf.PreFilter(state) {
			continue
		}
		start := time.Now()
		s, err := e.scanOne(p, state)
		scanmetrics.PatternScanLatency.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			scanmetrics.PatternScanErrors.WithLabelValues(p.Name()).Inc()
			if e.l != nil {
				e.l.Error("pattern scan failed",
					applogger.String("ticker", state.Ticker),
					applogger.String("pattern", p.Name()),
					applogger.Error(err))
			}
			continue
		}
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (e *PatternEvaluator) scanOne(p pattern.Pattern, state *models.TickerState) (s *models.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = fmt.Errorf("pattern %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Scan(state), nil
}
