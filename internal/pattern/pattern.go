// Package pattern defines the detection contract and the registry of
// enabled detection units.
package pattern

import "PatternPull/internal/domain/models"

// Pattern is a stateless detection unit. Scan receives a consistent ticker
// snapshot and returns a signal or nil. Implementations must derive all
// state from the snapshot; nothing may be carried between invocations.
type Pattern interface {
	Name() string

	// MinBars is the warmup requirement; the scanner skips tickers whose
	// window is shorter.
	MinBars() int

	Scan(state *models.TickerState) *models.Signal
}

// PreFilter is an optional cheap gate a pattern may implement. When it
// returns false the scanner skips the full Scan for that ticker.
type PreFilter interface {
	PreFilter(state *models.TickerState) bool
}
