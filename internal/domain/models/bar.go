package models

import (
	"time"

	"PatternPull/pkg/marketclock"
)

// Bar represents one OHLCV observation for a fixed time interval.
// Date, TimeOfDay and RegularSession are pre-computed in the reference
// timezone at construction so downstream consumers never re-derive them.
type Bar struct {
	Timestamp      time.Time
	Date           string // YYYY-MM-DD in the reference timezone
	TimeOfDay      string // HH:MM:SS in the reference timezone
	Open           float64
	High           float64
	Low            float64
	Close          float64
	Volume         float64
	RegularSession bool
}

// NewBar builds a Bar from raw feed values, normalizing the timestamp into
// the reference timezone.
func NewBar(ts time.Time, open, high, low, close, volume float64) Bar {
	date, tod, regular := marketclock.Normalize(ts)
	return Bar{
		Timestamp:      ts,
		Date:           date,
		TimeOfDay:      tod,
		Open:           open,
		High:           high,
		Low:            low,
		Close:          close,
		Volume:         volume,
		RegularSession: regular,
	}
}

// TickerBar pairs a bar with the ticker it belongs to, as delivered by
// upstream feeds.
type TickerBar struct {
	Ticker string
	Bar    Bar
}

// TickerState is a consistent snapshot of one ticker's sliding window:
// the most recent bars plus indicators and session metadata derived from
// them. It is produced by the window store; consumers must treat it as
// read-only.
type TickerState struct {
	Ticker string
	Bars   []Bar

	// Indicators over the current state.
	VWAP      float64 // session VWAP, resets at session boundary
	SMAShort  float64
	SMALong   float64
	AvgVolume float64
	Momentum  float64 // rate of change over the momentum window, in percent

	// Session metadata.
	SessionDate string
	SessionOpen float64
	SessionHigh float64
	SessionLow  float64
	PrevClose   float64 // previous session's closing price, 0 if unknown
}

// Latest returns the most recent bar and true, or a zero bar and false
// when the window is empty.
func (s *TickerState) Latest() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// BarCount returns the number of bars in the window.
func (s *TickerState) BarCount() int { return len(s.Bars) }
