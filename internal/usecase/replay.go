package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"PatternPull/internal/domain/models"
	domrepo "PatternPull/internal/domain/repository"
	applogger "PatternPull/pkg/logger"
)

// EarlyExitScope controls how far a detected signal stops further scanning
// for a ticker during replay.
type EarlyExitScope string

const (
	// ExitPerRun stops scanning a ticker for the rest of the run once any
	// day produced a signal: at most one signal per ticker per run.
	ExitPerRun EarlyExitScope = "run"

	// ExitPerDay only ends the day that produced the signal; later days of
	// the same ticker are still scanned.
	ExitPerDay EarlyExitScope = "day"
)

// DefaultSignalCap truncates the aggregated replay result.
const DefaultSignalCap = 200

// Detector is the detection routine replay drives bar-by-bar. The prefix
// holds the day's bars up to and including index; nothing later ever
// appears in it.
type Detector interface {
	Detect(ctx context.Context, ticker, date string, index int, prefix []models.Bar) (*models.Signal, error)
}

// ReplayConfig describes one replay run.
type ReplayConfig struct {
	Tickers   []string
	From      time.Time
	To        time.Time
	Warmup    int
	Timeframe domrepo.Timeframe
	Parallel  bool
	SignalCap int
	ExitScope EarlyExitScope
}

func (c *ReplayConfig) validate() error {
	if len(c.Tickers) == 0 {
		return fmt.Errorf("replay: no tickers")
	}
	if c.From.After(c.To) {
		return fmt.Errorf("replay: from %s after to %s", c.From.Format(time.RFC3339), c.To.Format(time.RFC3339))
	}
	if c.Warmup <= 0 {
		return fmt.Errorf("replay: warmup must be positive, got %d", c.Warmup)
	}
	if !domrepo.IsValidTimeframe(c.Timeframe) {
		return fmt.Errorf("replay: invalid timeframe %q", c.Timeframe)
	}
	if c.SignalCap == 0 {
		c.SignalCap = DefaultSignalCap
	}
	if c.SignalCap < 0 {
		return fmt.Errorf("replay: signal cap must be positive, got %d", c.SignalCap)
	}
	switch c.ExitScope {
	case "":
		c.ExitScope = ExitPerRun
	case ExitPerRun, ExitPerDay:
	default:
		return fmt.Errorf("replay: unknown exit scope %q", c.ExitScope)
	}
	return nil
}

// Replayer replays historical bars through a detector while enforcing the
// causal prefix invariant explicitly: the detector only ever sees bars up
// to the one being processed, within a single trading day.
type Replayer struct {
	source  domrepo.BarSource
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewReplayer(source domrepo.BarSource, metrics domrepo.Metrics, l *applogger.Logger) *Replayer {
	return &Replayer{source: source, metrics: metrics, l: l}
}

// Run replays all configured tickers and returns the signals produced, in
// production order, truncated to the signal cap. Ticker order in the result
// is deterministic only in sequential mode.
func (r *Replayer) Run(ctx context.Context, det Detector, cfg ReplayConfig) ([]*models.Signal, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var out []*models.Signal
	if cfg.Parallel {
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, ticker := range cfg.Tickers {
			wg.Add(1)
			go func(ticker string) {
				defer wg.Done()
				sigs := r.replayTicker(ctx, det, ticker, cfg)
				mu.Lock()
				out = append(out, sigs...)
				mu.Unlock()
			}(ticker)
		}
		wg.Wait()
	} else {
		for _, ticker := range cfg.Tickers {
			out = append(out, r.replayTicker(ctx, det, ticker, cfg)...)
		}
	}

	if len(out) > cfg.SignalCap {
		out = out[:cfg.SignalCap]
	}
	return out, nil
}

// replayTicker walks one ticker's days in order. Detection failures are
// treated as "no signal" so one bad bar never aborts the run.
func (r *Replayer) replayTicker(ctx context.Context, det Detector, ticker string, cfg ReplayConfig) []*models.Signal {
	bars, err := r.source.LoadBars(ctx, ticker, cfg.From, cfg.To, cfg.Timeframe)
	if err != nil {
		if r.l != nil {
			r.l.Error("replay load failed", applogger.String("ticker", ticker), applogger.Error(err))
		}
		if r.metrics != nil {
			r.metrics.RecordError("replay_load")
		}
		return nil
	}

	var signals []*models.Signal
	for _, day := range groupByDay(bars) {
		if len(day.bars) < cfg.Warmup {
			continue
		}

		start := time.Now()
		sig := r.replayDay(ctx, det, ticker, day, cfg.Warmup)
		if r.metrics != nil {
			r.metrics.RecordLatency("replay_day", time.Since(start).Seconds())
		}

		if sig != nil {
			signals = append(signals, sig)
			if cfg.ExitScope == ExitPerRun {
				break
			}
		}
	}
	return signals
}

// replayDay advances one bar at a time from the warmup index, handing the
// detector exactly the day's bars[0..i]. Returns on the first detection:
// one signal per ticker per day.
func (r *Replayer) replayDay(ctx context.Context, det Detector, ticker string, day tradingDay, warmup int) *models.Signal {
	for i := warmup; i < len(day.bars); i++ {
		prefix := day.bars[:i+1]
		sig, err := det.Detect(ctx, ticker, day.date, i, prefix)
		if err != nil {
			if r.l != nil {
				r.l.Warn("detection failed, treating as no signal",
					applogger.String("ticker", ticker),
					applogger.String("date", day.date),
					applogger.Int("index", i),
					applogger.Error(err))
			}
			if r.metrics != nil {
				r.metrics.RecordError("replay_detect")
			}
			continue
		}
		if sig != nil {
			bar := day.bars[i]
			sig.Ticker = ticker
			sig.DetectedAt = bar.Timestamp
			sig.Date = bar.Date
			sig.TimeOfDay = bar.TimeOfDay
			if r.metrics != nil {
				r.metrics.RecordSignal(sig.Pattern, ticker)
			}
			return sig
		}
	}
	return nil
}

type tradingDay struct {
	date string
	bars []models.Bar
}

// groupByDay splits ordered bars into per-date groups, preserving order.
func groupByDay(bars []models.Bar) []tradingDay {
	var days []tradingDay
	for _, b := range bars {
		if n := len(days); n > 0 && days[n-1].date == b.Date {
			days[n-1].bars = append(days[n-1].bars, b)
			continue
		}
		days = append(days, tradingDay{date: b.Date, bars: []models.Bar{b}})
	}
	return days
}

// SortSignals orders replay output by (ticker, date, time) for callers that
// need determinism after a parallel run.
func SortSignals(sigs []*models.Signal) {
	sort.Slice(sigs, func(i, j int) bool {
		a, b := sigs[i], sigs[j]
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.TimeOfDay < b.TimeOfDay
	})
}
