package pattern

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatternPull/internal/domain/models"
)

func gapState(prevClose, open, latestClose, vwap, avgVol, latestVol float64) *models.TickerState {
	bar := models.NewBar(time.Date(2024, 3, 14, 14, 5, 0, 0, time.UTC),
		open, latestClose+0.5, open-0.5, latestClose, latestVol)
	return &models.TickerState{
		Ticker:      "AAPL",
		Bars:        []models.Bar{bar},
		VWAP:        vwap,
		AvgVolume:   avgVol,
		SessionDate: bar.Date,
		SessionOpen: open,
		PrevClose:   prevClose,
	}
}

func TestGapUpSignalLevels(t *testing.T) {
	g := NewGapUp()
	// 3% gap, holding above VWAP, 2.5x volume.
	state := gapState(100, 103, 104, 102, 1000, 2500)

	require.True(t, g.PreFilter(state))
	sig := g.Scan(state)
	require.NotNil(t, sig)

	assert.Equal(t, "gap_up", sig.Pattern)
	assert.Equal(t, 104.0, sig.Entry)
	assert.Equal(t, 100.0, sig.Stop)
	assert.Equal(t, 104.0+2*(104.0-100.0), sig.Target)
	assert.Equal(t, "2024-03-14", sig.Date)
	assert.GreaterOrEqual(t, sig.Confidence, 0.0)
	assert.LessOrEqual(t, sig.Confidence, 100.0)
}

func TestGapUpConfidenceGrowsWithGap(t *testing.T) {
	g := NewGapUp()
	small := g.Scan(gapState(100, 102, 103, 101, 1000, 2500))
	large := g.Scan(gapState(100, 105, 106, 104, 1000, 2500))

	require.NotNil(t, small)
	require.NotNil(t, large)
	assert.Greater(t, large.Confidence, small.Confidence)
}

func TestGapUpRejections(t *testing.T) {
	g := NewGapUp()

	t.Run("gap too small", func(t *testing.T) {
		state := gapState(100, 101, 102, 100.5, 1000, 2500)
		assert.False(t, g.PreFilter(state))
		assert.Nil(t, g.Scan(state))
	})
	t.Run("below vwap", func(t *testing.T) {
		assert.Nil(t, g.Scan(gapState(100, 103, 104, 105, 1000, 2500)))
	})
	t.Run("volume too thin", func(t *testing.T) {
		assert.Nil(t, g.Scan(gapState(100, 103, 104, 102, 1000, 1500)))
	})
	t.Run("no previous close", func(t *testing.T) {
		state := gapState(0, 103, 104, 102, 1000, 2500)
		assert.False(t, g.PreFilter(state))
		assert.Nil(t, g.Scan(state))
	})
}

func TestVolumeSurgeRequiresUpBarAndRatio(t *testing.T) {
	v := NewVolumeSurge()

	up := models.NewBar(time.Date(2024, 3, 14, 14, 5, 0, 0, time.UTC), 100, 102, 99.5, 101.5, 3000)
	state := &models.TickerState{
		Ticker:    "AAPL",
		Bars:      []models.Bar{up},
		AvgVolume: 1000,
		SMAShort:  101,
		SMALong:   100,
	}
	require.True(t, v.PreFilter(state))
	sig := v.Scan(state)
	require.NotNil(t, sig)
	assert.Equal(t, 101.5, sig.Entry)
	assert.Equal(t, 99.5, sig.Stop)

	// Down bar never fires regardless of volume.
	down := up
	down.Open, down.Close = 102, 100
	state.Bars = []models.Bar{down}
	assert.Nil(t, v.Scan(state))
}

func TestVWAPReclaimNeedsDip(t *testing.T) {
	v := NewVWAPReclaim()

	mk := func(i int, close float64) models.Bar {
		return models.NewBar(time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC).Add(time.Duration(i)*time.Minute),
			close, close+0.2, close-0.2, close, 1000)
	}

	// Price dipped below VWAP then reclaimed it.
	bars := []models.Bar{mk(0, 99), mk(1, 98.5), mk(2, 100.5), mk(3, 101)}
	state := &models.TickerState{Ticker: "AAPL", Bars: bars, VWAP: 100, Momentum: 1.2}
	sig := v.Scan(state)
	require.NotNil(t, sig)
	assert.Equal(t, 101.0, sig.Entry)
	assert.Less(t, sig.Stop, sig.Entry)

	// Price always above VWAP: nothing to reclaim.
	bars = []models.Bar{mk(0, 100.5), mk(1, 100.8), mk(2, 101)}
	state = &models.TickerState{Ticker: "AAPL", Bars: bars, VWAP: 100, Momentum: 1.2}
	assert.Nil(t, v.Scan(state))
}
