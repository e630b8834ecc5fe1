package usecase

import (
	"context"
	"fmt"
	"time"

	"PatternPull/internal/domain/models"
	domrepo "PatternPull/internal/domain/repository"
	"PatternPull/internal/pattern"
	"PatternPull/internal/store"
)

// PatternDetector adapts an in-process Pattern to the replay Detector
// contract by rebuilding the window state a live store would hold after
// the prefix.
type PatternDetector struct {
	p        pattern.Pattern
	capacity int
}

func NewPatternDetector(p pattern.Pattern) *PatternDetector {
	return &PatternDetector{p: p, capacity: store.DefaultCapacity}
}

func (d *PatternDetector) Detect(ctx context.Context, ticker, date string, index int, prefix []models.Bar) (sig *models.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig = nil
			err = fmt.Errorf("pattern %s panicked: %v", d.p.Name(), r)
		}
	}()

	if len(prefix) < d.p.MinBars() {
		return nil, nil
	}
	state := store.BuildState(ticker, prefix, d.capacity)
	if pf, ok := d.p.(pattern.PreFilter); ok && !pf.PreFilter(state) {
		return nil, nil
	}
	return d.p.Scan(state), nil
}

// DefaultScriptTimeout bounds one external detection call.
const DefaultScriptTimeout = 10 * time.Second

// ScriptDetector adapts an external script executor to the Detector
// contract. Timeouts and execution failures surface as errors, which the
// replay engine downgrades to "no signal".
type ScriptDetector struct {
	exec    domrepo.ScriptExecutor
	timeout time.Duration
}

func NewScriptDetector(exec domrepo.ScriptExecutor, timeout time.Duration) *ScriptDetector {
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}
	return &ScriptDetector{exec: exec, timeout: timeout}
}

func (d *ScriptDetector) Detect(ctx context.Context, ticker, date string, index int, prefix []models.Bar) (*models.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return d.exec.Execute(ctx, domrepo.ScanRequest{
		Ticker:  ticker,
		Date:    date,
		Index:   index,
		Bars:    prefix,
		Timeout: d.timeout,
	})
}
