package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatternPull/internal/domain/models"
	"PatternPull/internal/pattern"
	"PatternPull/internal/store"
)

type firingPattern struct {
	name    string
	minBars int
}

func (p *firingPattern) Name() string { return p.name }
func (p *firingPattern) MinBars() int { return p.minBars }

func (p *firingPattern) Scan(state *models.TickerState) *models.Signal {
	latest, _ := state.Latest()
	return &models.Signal{
		Ticker:     state.Ticker,
		Pattern:    p.name,
		DetectedAt: latest.Timestamp,
		Date:       latest.Date,
		TimeOfDay:  latest.TimeOfDay,
		Confidence: 90,
	}
}

type panickingPattern struct{}

func (panickingPattern) Name() string { return "panicky" }
func (panickingPattern) MinBars() int { return 1 }
func (panickingPattern) Scan(_ *models.TickerState) *models.Signal { panic("bad indicator math") }

type blockingPattern struct {
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPattern) Name() string { return "blocking" }
func (p *blockingPattern) MinBars() int { return 1 }

func (p *blockingPattern) Scan(_ *models.TickerState) *models.Signal {
	close(p.entered)
	<-p.release
	return nil
}

func scannerFixture(patterns []pattern.Pattern, sink *recordingSink) (*LiveScanner, *store.WindowStore) {
	windows := store.New()
	registry := pattern.NewRegistry(nil)
	for _, p := range patterns {
		registry.Register(p)
	}
	dispatcher := NewAlertDispatcher(nil)
	dispatcher.AddSink(sink)

	s := NewLiveScanner(windows, NewPatternEvaluator(registry, nil), NewSignalTracker(), dispatcher, nil)
	return s, windows
}

func TestRunCycleEmitsOncePerCooldown(t *testing.T) {
	sink := &recordingSink{name: "test"}
	s, windows := scannerFixture([]pattern.Pattern{&firingPattern{name: "always", minBars: 1}}, sink)

	for _, b := range replayBars([]int{0}, 5) {
		windows.Ingest("AAPL", b)
	}

	s.RunCycle(context.Background())
	require.Len(t, sink.delivered, 1)
	assert.Equal(t, "AAPL", sink.delivered[0].Ticker)

	// Same (ticker, pattern) inside the cooldown: suppressed.
	s.RunCycle(context.Background())
	assert.Len(t, sink.delivered, 1)

	stats := s.Stats()
	assert.Equal(t, uint64(2), stats.Cycles)
	assert.Equal(t, 1, stats.TrackedTickers)
	assert.Equal(t, 1, stats.ActiveSignals)
	assert.False(t, stats.LastCycleAt.IsZero())
}

func TestRunCycleRespectsMinBars(t *testing.T) {
	sink := &recordingSink{name: "test"}
	s, windows := scannerFixture([]pattern.Pattern{&firingPattern{name: "needs60", minBars: 60}}, sink)

	for _, b := range replayBars([]int{0}, 50) {
		windows.Ingest("AAPL", b)
	}

	s.RunCycle(context.Background())
	assert.Empty(t, sink.delivered, "50 bars must never satisfy a 60-bar warmup")
}

func TestRunCyclePanicIsolation(t *testing.T) {
	sink := &recordingSink{name: "test"}
	s, windows := scannerFixture([]pattern.Pattern{
		panickingPattern{},
		&firingPattern{name: "healthy", minBars: 1},
	}, sink)

	for _, b := range replayBars([]int{0}, 5) {
		windows.Ingest("AAPL", b)
	}

	require.NotPanics(t, func() { s.RunCycle(context.Background()) })
	require.Len(t, sink.delivered, 1)
	assert.Equal(t, "healthy", sink.delivered[0].Pattern)
}

func TestRunCycleDropsReentrantTrigger(t *testing.T) {
	bp := &blockingPattern{entered: make(chan struct{}), release: make(chan struct{})}
	sink := &recordingSink{name: "test"}
	s, windows := scannerFixture([]pattern.Pattern{bp}, sink)

	for _, b := range replayBars([]int{0}, 5) {
		windows.Ingest("AAPL", b)
	}

	done := make(chan struct{})
	go func() {
		s.RunCycle(context.Background())
		close(done)
	}()
	<-bp.entered

	// Trigger while the first cycle is still inside Scan: must return
	// immediately without running.
	s.RunCycle(context.Background())
	assert.Equal(t, uint64(0), s.Stats().Cycles)

	close(bp.release)
	<-done
	assert.Equal(t, uint64(1), s.Stats().Cycles)
}

func TestStartStop(t *testing.T) {
	sink := &recordingSink{name: "test"}
	s, windows := scannerFixture([]pattern.Pattern{&firingPattern{name: "always", minBars: 1}}, sink)
	WithScanInterval(10 * time.Millisecond)(s)
	WithInitialDelay(0)(s)

	for _, b := range replayBars([]int{0}, 5) {
		windows.Ingest("AAPL", b)
	}

	s.Start(context.Background())
	deadline := time.After(2 * time.Second)
	for s.Stats().Cycles == 0 {
		select {
		case <-deadline:
			t.Fatal("no scan cycle completed before deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()

	require.NotEmpty(t, sink.delivered)
}
