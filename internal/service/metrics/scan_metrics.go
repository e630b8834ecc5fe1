package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// PatternScanLatency tracks per-pattern scan duration across all
	// tickers in a cycle.
	PatternScanLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "patternpull",
			Subsystem: "scan",
			Name:      "pattern_latency_seconds",
			Help:      "Latency of individual pattern scans",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"pattern"},
	)

	// PatternScanErrors counts recovered pattern failures by pattern name.
	PatternScanErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "patternpull",
			Subsystem: "scan",
			Name:      "pattern_errors_total",
			Help:      "Recovered pattern scan failures",
		},
		[]string{"pattern"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(PatternScanLatency, PatternScanErrors)
	})
}
