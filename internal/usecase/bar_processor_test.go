package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatternPull/internal/domain/models"
	"PatternPull/internal/store"
)

type nopMetrics struct{}

func (nopMetrics) RecordBarIngested(string) {}
func (nopMetrics) RecordBarRejected(string) {}
func (nopMetrics) RecordScanCycle(float64) {}
func (nopMetrics) RecordSignal(string, string) {}
func (nopMetrics) RecordAlertDelivery(string, bool) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) SetTrackedTickers(int) {}
func (nopMetrics) SetActiveSignals(int) {}

type fakeBarPublisher struct {
	single []*models.TickerBar
	batch  [][]*models.TickerBar
}

func (f *fakeBarPublisher) PublishBar(_ context.Context, tb *models.TickerBar) error {
	f.single = append(f.single, tb)
	return nil
}

func (f *fakeBarPublisher) PublishBars(_ context.Context, tbs []*models.TickerBar) error {
	f.batch = append(f.batch, tbs)
	return nil
}

func (f *fakeBarPublisher) Close() error { return nil }

func tbAt(i int, close float64) *models.TickerBar {
	ts := time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
	return &models.TickerBar{
		Ticker: "AAPL",
		Bar:    models.NewBar(ts, close, close+0.5, close-0.5, close, 1000),
	}
}

func TestProcessorSkipsRejectedBars(t *testing.T) {
	windows := store.New()
	pub := &fakeBarPublisher{}
	p := NewBarProcessor(windows, pub, nil, nopMetrics{}, "kafka")
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, tbAt(1, 100)))
	// Out-of-order bar: dropped by the window and never republished.
	require.NoError(t, p.Process(ctx, tbAt(0, 99)))

	assert.Len(t, pub.single, 1)
	snap, _ := windows.Get("AAPL")
	assert.Equal(t, 1, snap.BarCount())
}

func TestProcessorBatchForwardsAcceptedOnly(t *testing.T) {
	windows := store.New()
	pub := &fakeBarPublisher{}
	p := NewBarProcessor(windows, pub, nil, nopMetrics{}, "kafka")

	bars := []*models.TickerBar{tbAt(0, 100), tbAt(1, 101), tbAt(1, 102), nil}
	require.NoError(t, p.ProcessBatch(context.Background(), bars))

	require.Len(t, pub.batch, 1)
	assert.Len(t, pub.batch[0], 2)
}

func TestProcessorUnknownBackend(t *testing.T) {
	p := NewBarProcessor(store.New(), nil, nil, nopMetrics{}, "tape")
	assert.Error(t, p.Process(context.Background(), tbAt(0, 100)))
}

func TestKafkaBarsHandlerFeedsWindow(t *testing.T) {
	windows := store.New()
	proc := NewBarProcessor(windows, nil, nil, nopMetrics{}, "none")
	h := NewKafkaBarsHandler("bars.1m", proc, nopMetrics{})

	assert.Equal(t, "bars.1m", h.Topic())

	ts := time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC).Unix()
	msg, _ := json.Marshal(map[string]any{
		"ticker": "AAPL", "t": ts, "o": 100.0, "h": 101.0, "l": 99.0, "c": 100.5, "v": 1200.0,
	})
	require.NoError(t, h.Handle(context.Background(), msg))

	snap, ok := windows.Get("AAPL")
	require.True(t, ok)
	require.Equal(t, 1, snap.BarCount())
	assert.Equal(t, 100.5, snap.Bars[0].Close)
	assert.Equal(t, "2024-03-14", snap.Bars[0].Date)

	// Millisecond timestamps are folded to seconds.
	msgMS, _ := json.Marshal(map[string]any{
		"ticker": "AAPL", "t": (ts + 60) * 1000, "o": 100.0, "h": 101.0, "l": 99.0, "c": 101.0, "v": 900.0,
	})
	require.NoError(t, h.Handle(context.Background(), msgMS))

	snap, _ = windows.Get("AAPL")
	assert.Equal(t, 2, snap.BarCount())

	assert.Error(t, h.Handle(context.Background(), []byte("{broken")))
}
