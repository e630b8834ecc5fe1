package repository

import (
	"context"
	"time"

	"PatternPull/internal/domain/models"
)

// BarStream is an upstream live bar feed.
type BarStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.TickerBar, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SignalPublisher delivers accepted signals to a message broker.
type SignalPublisher interface {
	Publish(ctx context.Context, s *models.Signal) error
	Close() error
}

// BarPublisher republishes live bars onto a broker topic for downstream
// consumers, including replicas running the kafka intake.
type BarPublisher interface {
	PublishBar(ctx context.Context, b *models.TickerBar) error
	PublishBars(ctx context.Context, bars []*models.TickerBar) error
	Close() error
}

// BarStorage persists live bars so replay has history to read back.
type BarStorage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, b *models.TickerBar) error
	StoreBatch(ctx context.Context, bars []*models.TickerBar) error
	Health(ctx context.Context) error
	Close() error
}

// BarSource provides ordered historical bars for replay.
type BarSource interface {
	LoadBars(ctx context.Context, ticker string, from, to time.Time, tf Timeframe) ([]models.Bar, error)
}

// AlertSink delivers one signal to an outbound channel. Delivery failures
// are isolated by the dispatcher; sinks never see each other.
type AlertSink interface {
	Name() string
	Deliver(ctx context.Context, s *models.Signal) error
}

// ScanRequest is the causal input handed to an externally authored detector:
// the bar prefix up to and including Index, never anything later.
type ScanRequest struct {
	Ticker  string
	Date    string
	Index   int
	Bars    []models.Bar
	Timeout time.Duration
}

// ScriptExecutor runs externally authored detection code against a causal
// bar prefix. A nil signal with nil error means "no signal at this bar".
type ScriptExecutor interface {
	Execute(ctx context.Context, req ScanRequest) (*models.Signal, error)
}

// Metrics is the observability recorder implemented by pkg/metrics.
type Metrics interface {
	RecordBarIngested(ticker string)
	RecordBarRejected(kind string)
	RecordScanCycle(seconds float64)
	RecordSignal(pattern, ticker string)
	RecordAlertDelivery(sink string, ok bool)
	RecordError(kind string)
	RecordLastPrice(ticker string, price float64)
	RecordLatency(op string, seconds float64)
	SetTrackedTickers(n int)
	SetActiveSignals(n int)
}
