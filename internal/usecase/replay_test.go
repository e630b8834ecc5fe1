package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatternPull/internal/domain/models"
	domrepo "PatternPull/internal/domain/repository"
)

type fakeSource struct {
	bars map[string][]models.Bar
	err  error
}

func (f *fakeSource) LoadBars(_ context.Context, ticker string, _, _ time.Time, _ domrepo.Timeframe) ([]models.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[ticker], nil
}

type detectFunc func(ctx context.Context, ticker, date string, index int, prefix []models.Bar) (*models.Signal, error)

func (f detectFunc) Detect(ctx context.Context, ticker, date string, index int, prefix []models.Bar) (*models.Signal, error) {
	return f(ctx, ticker, date, index, prefix)
}

// replayBars builds n regular-session bars per day for the given day offsets.
func replayBars(dayOffsets []int, n int) []models.Bar {
	open := time.Date(2024, 3, 11, 13, 30, 0, 0, time.UTC) // Monday 09:30 ET
	var out []models.Bar
	for _, d := range dayOffsets {
		for i := 0; i < n; i++ {
			ts := open.AddDate(0, 0, d).Add(time.Duration(i) * time.Minute)
			out = append(out, models.NewBar(ts, 100, 101, 99, 100+float64(i), 1000))
		}
	}
	return out
}

func baseReplayConfig() ReplayConfig {
	return ReplayConfig{
		Tickers:   []string{"AAPL"},
		From:      time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		Warmup:    5,
		Timeframe: domrepo.TF1m,
	}
}

func TestReplayPrefixIsCausal(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.Bar{"AAPL": replayBars([]int{0}, 20)}}
	r := NewReplayer(src, nil, nil)

	det := detectFunc(func(_ context.Context, _, _ string, index int, prefix []models.Bar) (*models.Signal, error) {
		// The detector must see exactly the day's bars up to index.
		require.Len(t, prefix, index+1)
		last := prefix[len(prefix)-1]
		for _, b := range prefix {
			require.False(t, b.Timestamp.After(last.Timestamp))
		}
		return nil, nil
	})

	_, err := r.Run(context.Background(), det, baseReplayConfig())
	require.NoError(t, err)
}

func TestReplayDetectionUnaffectedByLaterBars(t *testing.T) {
	base := replayBars([]int{0}, 8)
	mutated := make([]models.Bar, len(base))
	copy(mutated, base)
	mutated[7].Close = 999
	mutated[7].High = 999

	observe := func(src *fakeSource) map[int]float64 {
		seen := make(map[int]float64)
		det := detectFunc(func(_ context.Context, _, _ string, index int, prefix []models.Bar) (*models.Signal, error) {
			var sum float64
			for _, b := range prefix {
				sum += b.Close
			}
			seen[index] = sum
			return nil, nil
		})
		r := NewReplayer(src, nil, nil)
		_, err := r.Run(context.Background(), det, baseReplayConfig())
		require.NoError(t, err)
		return seen
	}

	a := observe(&fakeSource{bars: map[string][]models.Bar{"AAPL": base}})
	b := observe(&fakeSource{bars: map[string][]models.Bar{"AAPL": mutated}})

	// Changing bar 7 must not leak into what the detector saw at any
	// earlier index.
	for i := 5; i < 7; i++ {
		assert.Equal(t, a[i], b[i], "detection input at index %d saw a later bar", i)
	}
	assert.NotEqual(t, a[7], b[7])
}

func TestReplaySkipsDaysBelowWarmup(t *testing.T) {
	bars := append(replayBars([]int{0}, 3), replayBars([]int{1}, 10)...)
	src := &fakeSource{bars: map[string][]models.Bar{"AAPL": bars}}
	r := NewReplayer(src, nil, nil)

	var seen []string
	det := detectFunc(func(_ context.Context, _, date string, _ int, _ []models.Bar) (*models.Signal, error) {
		seen = append(seen, date)
		return nil, nil
	})

	_, err := r.Run(context.Background(), det, baseReplayConfig())
	require.NoError(t, err)
	for _, d := range seen {
		assert.Equal(t, "2024-03-12", d, "short day must never reach the detector")
	}
	assert.NotEmpty(t, seen)
}

func TestReplayOneSignalPerDayAndExitScopes(t *testing.T) {
	bars := replayBars([]int{0, 1, 2}, 10)
	src := &fakeSource{bars: map[string][]models.Bar{"AAPL": bars}}
	r := NewReplayer(src, nil, nil)

	// Fires on every bar it is shown.
	always := detectFunc(func(_ context.Context, _, _ string, _ int, _ []models.Bar) (*models.Signal, error) {
		return &models.Signal{Pattern: "gap_up", Confidence: 90}, nil
	})

	cfg := baseReplayConfig()
	cfg.ExitScope = ExitPerRun
	sigs, err := r.Run(context.Background(), always, cfg)
	require.NoError(t, err)
	require.Len(t, sigs, 1, "per-run scope stops the ticker after its first signal")

	cfg.ExitScope = ExitPerDay
	sigs, err = r.Run(context.Background(), always, cfg)
	require.NoError(t, err)
	require.Len(t, sigs, 3, "per-day scope yields at most one signal per day")

	// First detection happens at the warmup index and is stamped from that bar.
	first := sigs[0]
	assert.Equal(t, "AAPL", first.Ticker)
	assert.Equal(t, "2024-03-11", first.Date)
	assert.Equal(t, "09:35:00", first.TimeOfDay)
}

func TestReplayDetectErrorTreatedAsNoSignal(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.Bar{"AAPL": replayBars([]int{0}, 10)}}
	r := NewReplayer(src, nil, nil)

	calls := 0
	det := detectFunc(func(_ context.Context, _, _ string, index int, _ []models.Bar) (*models.Signal, error) {
		calls++
		if index < 8 {
			return nil, errors.New("scanner crashed")
		}
		return &models.Signal{Pattern: "gap_up"}, nil
	})

	sigs, err := r.Run(context.Background(), det, baseReplayConfig())
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, 4, calls, "errors must not abort the day")
}

func TestReplaySignalCap(t *testing.T) {
	bars := replayBars([]int{0, 1, 2, 3, 4}, 10)
	src := &fakeSource{bars: map[string][]models.Bar{"AAPL": bars}}
	r := NewReplayer(src, nil, nil)

	always := detectFunc(func(_ context.Context, _, _ string, _ int, _ []models.Bar) (*models.Signal, error) {
		return &models.Signal{Pattern: "gap_up"}, nil
	})

	cfg := baseReplayConfig()
	cfg.ExitScope = ExitPerDay
	cfg.SignalCap = 2
	sigs, err := r.Run(context.Background(), always, cfg)
	require.NoError(t, err)
	assert.Len(t, sigs, 2)
}

func TestReplayParallelMergesAllTickers(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.Bar{
		"AAPL": replayBars([]int{0}, 10),
		"MSFT": replayBars([]int{0}, 10),
		"NVDA": replayBars([]int{0}, 10),
	}}
	r := NewReplayer(src, nil, nil)

	always := detectFunc(func(_ context.Context, _, _ string, _ int, _ []models.Bar) (*models.Signal, error) {
		return &models.Signal{Pattern: "gap_up"}, nil
	})

	cfg := baseReplayConfig()
	cfg.Tickers = []string{"AAPL", "MSFT", "NVDA"}
	cfg.Parallel = true
	sigs, err := r.Run(context.Background(), always, cfg)
	require.NoError(t, err)
	require.Len(t, sigs, 3)

	SortSignals(sigs)
	assert.Equal(t, "AAPL", sigs[0].Ticker)
	assert.Equal(t, "MSFT", sigs[1].Ticker)
	assert.Equal(t, "NVDA", sigs[2].Ticker)
}

func TestReplayConfigValidation(t *testing.T) {
	r := NewReplayer(&fakeSource{}, nil, nil)
	det := detectFunc(func(_ context.Context, _, _ string, _ int, _ []models.Bar) (*models.Signal, error) {
		return nil, nil
	})

	cfg := baseReplayConfig()
	cfg.Tickers = nil
	_, err := r.Run(context.Background(), det, cfg)
	assert.Error(t, err)

	cfg = baseReplayConfig()
	cfg.Warmup = 0
	_, err = r.Run(context.Background(), det, cfg)
	assert.Error(t, err)

	cfg = baseReplayConfig()
	cfg.ExitScope = "sometimes"
	_, err = r.Run(context.Background(), det, cfg)
	assert.Error(t, err)

	cfg = baseReplayConfig()
	cfg.From, cfg.To = cfg.To, cfg.From
	_, err = r.Run(context.Background(), det, cfg)
	assert.Error(t, err)
}

func TestReplayLoadErrorSkipsTicker(t *testing.T) {
	src := &fakeSource{err: errors.New("storage offline")}
	r := NewReplayer(src, nil, nil)

	det := detectFunc(func(_ context.Context, _, _ string, _ int, _ []models.Bar) (*models.Signal, error) {
		t.Fatal("detector must not run when loading fails")
		return nil, nil
	})

	sigs, err := r.Run(context.Background(), det, baseReplayConfig())
	require.NoError(t, err)
	assert.Empty(t, sigs)
}
