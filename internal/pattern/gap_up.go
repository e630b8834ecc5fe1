package pattern

import (
	"math"

	"PatternPull/internal/domain/models"
)

// GapUp detects an overnight gap that keeps holding above session VWAP on
// elevated volume: the classic gap-and-go continuation.
type GapUp struct {
	MinGapPct float64 // minimum overnight gap, percent
	VolRatio  float64 // latest volume vs average volume
}

// NewGapUp returns a GapUp with the stock 2% gap / 2x volume thresholds.
func NewGapUp() *GapUp {
	return &GapUp{MinGapPct: 2.0, VolRatio: 2.0}
}

func (g *GapUp) Name() string { return "gap_up" }

func (g *GapUp) MinBars() int { return avgVolWarmup }

// PreFilter rejects tickers with no overnight gap before the full scan runs.
func (g *GapUp) PreFilter(state *models.TickerState) bool {
	if state.PrevClose <= 0 || state.SessionOpen <= 0 {
		return false
	}
	return gapPct(state) >= g.MinGapPct
}

func (g *GapUp) Scan(state *models.TickerState) *models.Signal {
	latest, ok := state.Latest()
	if !ok || state.PrevClose <= 0 {
		return nil
	}

	gap := gapPct(state)
	if gap < g.MinGapPct {
		return nil
	}
	if latest.Close <= state.VWAP {
		return nil
	}
	if state.AvgVolume <= 0 || latest.Volume < g.VolRatio*state.AvgVolume {
		return nil
	}

	entry := latest.Close
	stop := state.PrevClose
	target := entry + 2*(entry-stop)
	volRatio := latest.Volume / state.AvgVolume

	// Confidence grows with the gap and, more slowly, with volume ratio.
	conf := 40 + gap*10 + math.Min(volRatio-g.VolRatio, 2)*2.5
	conf = math.Min(conf, 100)

	return &models.Signal{
		Ticker:     state.Ticker,
		Pattern:    g.Name(),
		DetectedAt: latest.Timestamp,
		Date:       latest.Date,
		TimeOfDay:  latest.TimeOfDay,
		Entry:      entry,
		Stop:       stop,
		Target:     target,
		Confidence: conf,
		Metadata: map[string]any{
			"gap_pct":   gap,
			"vol_ratio": volRatio,
			"vwap":      state.VWAP,
		},
	}
}

func gapPct(state *models.TickerState) float64 {
	if state.PrevClose <= 0 {
		return 0
	}
	return (state.SessionOpen - state.PrevClose) / state.PrevClose * 100
}

// avgVolWarmup lets the 20-bar average volume settle before detection.
const avgVolWarmup = 20
