package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatternPull/internal/domain/models"
)

type countingMetrics struct {
	mu       sync.Mutex
	rejected map[string]int
	errs     map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{rejected: make(map[string]int), errs: make(map[string]int)}
}

func (m *countingMetrics) RecordBarIngested(string) {}
func (m *countingMetrics) RecordBarRejected(reason string) {
	m.mu.Lock()
	m.rejected[reason]++
	m.mu.Unlock()
}
func (m *countingMetrics) RecordScanCycle(float64) {}
func (m *countingMetrics) RecordSignal(string, string) {}
func (m *countingMetrics) RecordAlertDelivery(string, bool) {}
func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errs[kind]++
	m.mu.Unlock()
}
func (m *countingMetrics) RecordLastPrice(string, float64) {}
func (m *countingMetrics) RecordLatency(string, float64) {}
func (m *countingMetrics) SetTrackedTickers(int) {}
func (m *countingMetrics) SetActiveSignals(int) {}

func (m *countingMetrics) rejectedCount(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejected[reason]
}

type stubProc struct {
	mu   sync.Mutex
	bars []*models.TickerBar
	err  error
}

func (s *stubProc) Process(_ context.Context, tb *models.TickerBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.bars = append(s.bars, tb)
	return nil
}

func validTickerBar() *models.TickerBar {
	return &models.TickerBar{
		Ticker: "AAPL",
		Bar:    models.NewBar(time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC), 100, 101, 99, 100.5, 1000),
	}
}

func TestPipelineForwardsValidBars(t *testing.T) {
	proc := &stubProc{}
	p := NewIngestPipeline(proc, newCountingMetrics())

	require.NoError(t, p.Process(context.Background(), validTickerBar()))
	require.Len(t, proc.bars, 1)
	assert.Equal(t, "AAPL", proc.bars[0].Ticker)
}

func TestPipelineRejectsMalformedBars(t *testing.T) {
	proc := &stubProc{}
	m := newCountingMetrics()
	p := NewIngestPipeline(proc, m)
	ctx := context.Background()

	assert.Error(t, p.Process(ctx, nil))

	noTicker := validTickerBar()
	noTicker.Ticker = ""
	assert.Error(t, p.Process(ctx, noTicker))

	zeroTS := validTickerBar()
	zeroTS.Bar.Timestamp = time.Time{}
	assert.Error(t, p.Process(ctx, zeroTS))

	negative := validTickerBar()
	negative.Bar.Close = -1
	assert.Error(t, p.Process(ctx, negative))

	inverted := validTickerBar()
	inverted.Bar.High, inverted.Bar.Low = 99.0, 101.0
	assert.Error(t, p.Process(ctx, inverted))

	assert.Empty(t, proc.bars)
	assert.Equal(t, 5, m.rejectedCount("invalid"))
}

func TestPipelineThrottlesPerTicker(t *testing.T) {
	proc := &stubProc{}
	m := newCountingMetrics()
	p := NewIngestPipeline(proc, m, WithMaxRPS(1))
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, validTickerBar()))
	// Immediate second bar for the same ticker exceeds 1 rps.
	require.NoError(t, p.Process(ctx, validTickerBar()))
	assert.Len(t, proc.bars, 1)
	assert.Equal(t, 1, m.rejectedCount("throttled"))

	// A different ticker has its own budget.
	other := validTickerBar()
	other.Ticker = "MSFT"
	require.NoError(t, p.Process(ctx, other))
	assert.Len(t, proc.bars, 2)
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &stubProc{err: errors.New("storage offline")}
	m := newCountingMetrics()
	p := NewIngestPipeline(proc, m, WithBufferSize(4), WithMaxRPS(1000))

	err := p.Process(context.Background(), validTickerBar())
	require.Error(t, err)

	// Downstream recovers; the flush loop drains the buffer.
	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()

	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for {
		proc.mu.Lock()
		n := len(proc.bars)
		proc.mu.Unlock()
		if n == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("buffered bar was never flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPipelineTransformHook(t *testing.T) {
	proc := &stubProc{}
	p := NewIngestPipeline(proc, newCountingMetrics(), WithTransform(func(tb *models.TickerBar) *models.TickerBar {
		tb.Ticker = "RENAMED"
		return tb
	}))

	require.NoError(t, p.Process(context.Background(), validTickerBar()))
	require.Len(t, proc.bars, 1)
	assert.Equal(t, "RENAMED", proc.bars[0].Ticker)
}
