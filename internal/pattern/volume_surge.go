package pattern

import (
	"math"

	"PatternPull/internal/domain/models"
)

// VolumeSurge detects an abrupt volume expansion on an up bar while the
// short moving average sits above the long one.
type VolumeSurge struct {
	Ratio float64 // latest volume vs average
}

func NewVolumeSurge() *VolumeSurge {
	return &VolumeSurge{Ratio: 2.5}
}

func (v *VolumeSurge) Name() string { return "volume_surge" }

func (v *VolumeSurge) MinBars() int { return smaLongWarmup }

// PreFilter skips tickers whose short trend is not above the long trend.
func (v *VolumeSurge) PreFilter(state *models.TickerState) bool {
	return state.SMAShort > state.SMALong
}

func (v *VolumeSurge) Scan(state *models.TickerState) *models.Signal {
	latest, ok := state.Latest()
	if !ok || state.AvgVolume <= 0 {
		return nil
	}
	if latest.Close <= latest.Open {
		return nil
	}
	ratio := latest.Volume / state.AvgVolume
	if ratio < v.Ratio {
		return nil
	}

	entry := latest.Close
	stop := latest.Low
	if stop >= entry {
		stop = entry * 0.99
	}
	target := entry + 2*(entry-stop)

	conf := 45 + math.Min((ratio-v.Ratio)*10, 40)
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
			"vol_ratio": ratio,
			"sma_short": state.SMAShort,
			"sma_long":  state.SMALong,
		},
	}
}
