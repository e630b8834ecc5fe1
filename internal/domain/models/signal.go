package models

import "time"

// Signal is the output of a successful pattern scan. Signals are immutable
// once created; dedup and dispatch only read them.
type Signal struct {
	Ticker     string
	Pattern    string
	DetectedAt time.Time
	Date       string // trading date of the triggering bar
	TimeOfDay  string
	Entry      float64
	Stop       float64
	Target     float64
	Confidence float64 // [0,100]
	Metadata   map[string]any
}

// ScanStats is the live scanner's heartbeat snapshot.
type ScanStats struct {
	Cycles         uint64    `json:"cycles"`
	TrackedTickers int       `json:"tracked_tickers"`
	ActiveSignals  int       `json:"active_signals"`
	AvgBufferLen   float64   `json:"avg_buffer_len"`
	LastCycleAt    time.Time `json:"last_cycle_at"`
}
