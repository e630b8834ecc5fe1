package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	barsIngested    *prometheus.CounterVec
	barsRejected    *prometheus.CounterVec
	signalsEmitted  *prometheus.CounterVec
	alertDeliveries *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	trackedTickers  prometheus.Gauge
	activeSignals   prometheus.Gauge
	scanCycles      prometheus.Histogram
	latency         *prometheus.HistogramVec
}

var (
	defaultRecorder *Recorder
	newOnce         sync.Once
)

// New returns the process-wide Prometheus metrics recorder. Collectors are
// registered with the default registry exactly once.
func New() *Recorder {
	newOnce.Do(func() { defaultRecorder = newRecorder() })
	return defaultRecorder
}

func newRecorder() *Recorder {
	return &Recorder{
		barsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patternpull_bars_ingested_total",
				Help: "Bars accepted into the sliding window store",
			},
			[]string{"ticker"},
		),
		barsRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patternpull_bars_rejected_total",
				Help: "Bars dropped before ingestion, by reason",
			},
			[]string{"reason"},
		),
		signalsEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patternpull_signals_total",
				Help: "Signals emitted after dedup",
			},
			[]string{"pattern", "ticker"},
		),
		alertDeliveries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patternpull_alert_deliveries_total",
				Help: "Alert sink delivery attempts by outcome",
			},
			[]string{"sink", "outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patternpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "patternpull_last_price",
				Help: "Last recorded close for a ticker",
			},
			[]string{"ticker"},
		),
		trackedTickers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "patternpull_tracked_tickers",
				Help: "Tickers currently tracked by the window store",
			},
		),
		activeSignals: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "patternpull_active_signals",
				Help: "Signals inside their cooldown window",
			},
		),
		scanCycles: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "patternpull_scan_cycle_duration_seconds",
				Help:    "Duration of full scan cycles",
				Buckets: prometheus.DefBuckets,
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patternpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordBarIngested counts an accepted bar.
func (r *Recorder) RecordBarIngested(ticker string) {
	r.barsIngested.WithLabelValues(ticker).Inc()
}

// RecordBarRejected counts a dropped bar by reason.
func (r *Recorder) RecordBarRejected(kind string) {
	r.barsRejected.WithLabelValues(kind).Inc()
}

// RecordScanCycle observes a completed scan cycle duration.
func (r *Recorder) RecordScanCycle(seconds float64) {
	r.scanCycles.Observe(seconds)
}

// RecordSignal counts an emitted signal.
func (r *Recorder) RecordSignal(pattern, ticker string) {
	r.signalsEmitted.WithLabelValues(pattern, ticker).Inc()
}

// RecordAlertDelivery counts a sink delivery attempt.
func (r *Recorder) RecordAlertDelivery(sink string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	r.alertDeliveries.WithLabelValues(sink, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last close for a ticker.
func (r *Recorder) RecordLastPrice(ticker string, price float64) {
	r.lastPrice.WithLabelValues(ticker).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// SetTrackedTickers updates the tracked-ticker gauge.
func (r *Recorder) SetTrackedTickers(n int) {
	r.trackedTickers.Set(float64(n))
}

// SetActiveSignals updates the active-signal gauge.
func (r *Recorder) SetActiveSignals(n int) {
	r.activeSignals.Set(float64(n))
}
