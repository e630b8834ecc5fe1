package usecase

import (
	"context"
	"fmt"
	"time"

	"PatternPull/internal/domain/models"
	drepo "PatternPull/internal/domain/repository"
	"PatternPull/internal/store"
)

// BarProcessor feeds incoming live bars into the scanning window and routes
// them to the configured persistence backend so replay later has history.
type BarProcessor struct {
	windows *store.WindowStore
	pub     drepo.BarPublisher
	storage drepo.BarStorage
	metrics drepo.Metrics
	backend string // "kafka", "clickhouse" or "none"
}

// NewBarProcessor creates a processor. backend selects where accepted bars
// go beyond the in-memory window: republished to kafka or written to
// clickhouse.
func NewBarProcessor(
	windows *store.WindowStore,
	pub drepo.BarPublisher,
	storage drepo.BarStorage,
	metrics drepo.Metrics,
	backend string,
) *BarProcessor {
	return &BarProcessor{
		windows: windows,
		pub:     pub,
		storage: storage,
		metrics: metrics,
		backend: backend,
	}
}

// Process ingests a single bar. Window rejection (out-of-order bar) is not
// an error: it is counted and the bar is not forwarded, keeping persisted
// history consistent with what the scanner saw.
func (p *BarProcessor) Process(ctx context.Context, tb *models.TickerBar) error {
	if tb == nil {
		return fmt.Errorf("bar is nil")
	}

	start := time.Now()
	if !p.windows.Ingest(tb.Ticker, tb.Bar) {
		return nil
	}

	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishBar(ctx, tb)
	case "clickhouse":
		err = p.storage.Store(ctx, tb)
	case "none", "":
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process bar: %w", err)
	}

	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// ProcessBatch ingests multiple bars, forwarding accepted ones in one
// batch.
func (p *BarProcessor) ProcessBatch(ctx context.Context, bars []*models.TickerBar) error {
	if len(bars) == 0 {
		return nil
	}

	start := time.Now()
	accepted := make([]*models.TickerBar, 0, len(bars))
	for _, tb := range bars {
		if tb == nil {
			continue
		}
		if p.windows.Ingest(tb.Ticker, tb.Bar) {
			accepted = append(accepted, tb)
		}
	}

	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishBars(ctx, accepted)
	case "clickhouse":
		err = p.storage.StoreBatch(ctx, accepted)
	case "none", "":
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *BarProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.storage != nil {
		_ = p.storage.Close()
	}
}
