package pattern

import (
	"math"

	"PatternPull/internal/domain/models"
)

// VWAPReclaim detects price crossing back above session VWAP after trading
// below it earlier in the window, with positive short-term momentum.
type VWAPReclaim struct {
	Lookback int // bars to search for the below-VWAP dip
}

func NewVWAPReclaim() *VWAPReclaim {
	return &VWAPReclaim{Lookback: 15}
}

func (v *VWAPReclaim) Name() string { return "vwap_reclaim" }

func (v *VWAPReclaim) MinBars() int { return smaLongWarmup }

func (v *VWAPReclaim) Scan(state *models.TickerState) *models.Signal {
	latest, ok := state.Latest()
	if !ok || state.VWAP <= 0 {
		return nil
	}
	if latest.Close <= state.VWAP || state.Momentum <= 0 {
		return nil
	}

	// Require a dip below VWAP in the recent window; otherwise price never
	// left VWAP and there is nothing to reclaim.
	dipped := false
	start := len(state.Bars) - 1 - v.Lookback
	if start < 0 {
		start = 0
	}
	var lowest float64 = math.MaxFloat64
	for _, b := range state.Bars[start : len(state.Bars)-1] {
		if b.Close < state.VWAP {
			dipped = true
		}
		if b.Low < lowest {
			lowest = b.Low
		}
	}
	if !dipped {
		return nil
	}

	entry := latest.Close
	stop := lowest
	if stop >= entry {
		return nil
	}
	target := entry + 1.5*(entry-stop)

	conf := 50 + math.Min(state.Momentum*8, 35)
	conf = math.Min(conf, 100)

	return &models.Signal{
		Ticker:     state.Ticker,
		Pattern:    v.Name(),
		DetectedAt: latest.Timestamp,
		Date:       latest.Date,
		TimeOfDay:  latest.TimeOfDay,
		Entry:      entry,
		Stop:       stop,
		Target:     target,
		Confidence: conf,
		Metadata: map[string]any{
			"vwap":     state.VWAP,
			"momentum": state.Momentum,
		},
	}
}

// smaLongWarmup matches the long moving-average window so trend context is
// meaningful before this pattern fires.
const smaLongWarmup = 30
