package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatternPull/internal/domain/models"
)

// 10:00 Eastern on a Thursday.
var base = time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC)

func minuteBar(i int, close, volume float64) models.Bar {
	return models.NewBar(base.Add(time.Duration(i)*time.Minute), close, close+0.5, close-0.5, close, volume)
}

func TestIngestRejectsOutOfOrder(t *testing.T) {
	s := New()

	require.True(t, s.Ingest("AAPL", minuteBar(1, 100, 1000)))

	// Duplicate timestamp and an older timestamp must both be dropped.
	assert.False(t, s.Ingest("AAPL", minuteBar(1, 101, 1000)))
	assert.False(t, s.Ingest("AAPL", minuteBar(0, 99, 1000)))

	snap, ok := s.Get("AAPL")
	require.True(t, ok)
	require.Equal(t, 1, snap.BarCount())
	assert.Equal(t, 100.0, snap.Bars[0].Close)
}

func TestRejectedBarLeavesIndicatorsUntouched(t *testing.T) {
	s := New()
	s.Ingest("AAPL", minuteBar(0, 100, 1000))
	s.Ingest("AAPL", minuteBar(1, 102, 1000))
	before, _ := s.Get("AAPL")

	s.Ingest("AAPL", minuteBar(1, 500, 99999))
	after, _ := s.Get("AAPL")

	assert.Equal(t, before.VWAP, after.VWAP)
	assert.Equal(t, before.SMAShort, after.SMAShort)
	assert.Equal(t, before.AvgVolume, after.AvgVolume)
	assert.Equal(t, before.BarCount(), after.BarCount())
}

func TestEvictionKeepsWindowBounded(t *testing.T) {
	s := New(WithCapacity(5))
	for i := 0; i < 8; i++ {
		require.True(t, s.Ingest("AAPL", minuteBar(i, 100+float64(i), 1000)))
	}

	snap, ok := s.Get("AAPL")
	require.True(t, ok)
	require.Equal(t, 5, snap.BarCount())
	// Oldest three evicted; window starts at bar 3.
	assert.Equal(t, 103.0, snap.Bars[0].Close)
	assert.Equal(t, 107.0, snap.Bars[4].Close)
}

func TestSessionVWAPSurvivesEviction(t *testing.T) {
	s := New(WithCapacity(3))
	var pv, v float64
	for i := 0; i < 5; i++ {
		bar := minuteBar(i, 100+float64(i), 1000)
		typical := (bar.High + bar.Low + bar.Close) / 3
		pv += typical * bar.Volume
		v += bar.Volume
		s.Ingest("AAPL", bar)
	}

	snap, _ := s.Get("AAPL")
	require.Equal(t, 3, snap.BarCount())
	// VWAP accumulates over the whole session, not just the surviving window.
	assert.InDelta(t, pv/v, snap.VWAP, 1e-9)
}

func TestSessionResetOnDateChange(t *testing.T) {
	s := New()
	s.Ingest("AAPL", minuteBar(0, 100, 1000))
	s.Ingest("AAPL", minuteBar(1, 104, 1000))

	// Next trading day, gapping open.
	nextDay := models.NewBar(base.AddDate(0, 0, 1), 110, 112, 109, 111, 2000)
	require.True(t, s.Ingest("AAPL", nextDay))

	snap, _ := s.Get("AAPL")
	assert.Equal(t, "2024-03-15", snap.SessionDate)
	assert.Equal(t, 104.0, snap.PrevClose)
	assert.Equal(t, 110.0, snap.SessionOpen)
	assert.Equal(t, 112.0, snap.SessionHigh)
	assert.Equal(t, 109.0, snap.SessionLow)

	// VWAP restarted: only the new session's bar contributes.
	typical := (112.0 + 109.0 + 111.0) / 3
	assert.InDelta(t, typical, snap.VWAP, 1e-9)
}

func TestSMAAndAvgVolumeWindows(t *testing.T) {
	s := New()
	for i := 0; i < 12; i++ {
		s.Ingest("AAPL", minuteBar(i, 100+float64(i), 1000+float64(i)*10))
	}

	snap, _ := s.Get("AAPL")

	// SMA short covers the last 10 closes: 102..111.
	var want float64
	for c := 102.0; c <= 111; c++ {
		want += c
	}
	assert.InDelta(t, want/10, snap.SMAShort, 1e-9)

	// Long SMA and average volume have seen only 12 samples; they average
	// what they have rather than reporting zero.
	assert.Greater(t, snap.SMALong, 0.0)
	assert.Greater(t, snap.AvgVolume, 0.0)
}

func TestMomentumRateOfChange(t *testing.T) {
	s := New()
	// Eleven bars: momentum compares bar 10 against bar 0.
	for i := 0; i <= 10; i++ {
		s.Ingest("AAPL", minuteBar(i, 100+float64(i), 1000))
	}

	snap, _ := s.Get("AAPL")
	assert.InDelta(t, (110.0-100.0)/100.0*100, snap.Momentum, 1e-9)
}

func TestMomentumZeroBeforeWarmup(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.Ingest("AAPL", minuteBar(i, 100+float64(i), 1000))
	}
	snap, _ := s.Get("AAPL")
	assert.Zero(t, snap.Momentum)
}

func TestGetUnknownTicker(t *testing.T) {
	s := New()
	_, ok := s.Get("MSFT")
	assert.False(t, ok)
}

func TestTickersSorted(t *testing.T) {
	s := New()
	for _, tk := range []string{"MSFT", "AAPL", "NVDA"} {
		s.Ingest(tk, minuteBar(0, 100, 1000))
	}
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, s.Tickers())
	assert.InDelta(t, 1.0, s.AvgBufferLen(), 1e-9)
}

func TestBuildStateMatchesLiveIngest(t *testing.T) {
	bars := make([]models.Bar, 0, 40)
	for i := 0; i < 40; i++ {
		bars = append(bars, minuteBar(i, 100+float64(i%7), 1000+float64(i)))
	}

	s := New()
	for _, b := range bars {
		s.Ingest("AAPL", b)
	}
	live, _ := s.Get("AAPL")

	rebuilt := BuildState("AAPL", bars, DefaultCapacity)

	assert.Equal(t, live.Bars, rebuilt.Bars)
	assert.InDelta(t, live.VWAP, rebuilt.VWAP, 1e-9)
	assert.InDelta(t, live.SMAShort, rebuilt.SMAShort, 1e-9)
	assert.InDelta(t, live.SMALong, rebuilt.SMALong, 1e-9)
	assert.InDelta(t, live.AvgVolume, rebuilt.AvgVolume, 1e-9)
	assert.InDelta(t, live.Momentum, rebuilt.Momentum, 1e-9)
	assert.Equal(t, live.SessionDate, rebuilt.SessionDate)
}
