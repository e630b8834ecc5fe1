package usecase

import (
	"context"

	"PatternPull/internal/domain/models"
	drepo "PatternPull/internal/domain/repository"
	mid "PatternPull/internal/middleware"
)

// BarCollector consumes bars from the live feed and pushes them through the
// ingest pipeline into the processor.
type BarCollector struct {
	stream  drepo.BarStream
	proc    *BarProcessor
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline
}

// NewBarCollector creates a new BarCollector instance.
func NewBarCollector(stream drepo.BarStream, proc *BarProcessor, metrics drepo.Metrics, pipe *mid.IngestPipeline) *BarCollector {
	return &BarCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the feed is connected.
func (c *BarCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *BarCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	barCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, barCh, errCh)
	return nil
}

func (c *BarCollector) consume(ctx context.Context, barCh <-chan *models.TickerBar, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			// The read loop sends one error and then closes both
			// channels on exit, so a nil receive means the channel is
			// closed and the connection is gone either way. Reconnect
			// and start a fresh read loop with fresh channels.
			if err != nil {
				c.metrics.RecordError("stream")
			}
			if ctx.Err() != nil {
				return
			}
			if rErr := c.stream.Reconnect(ctx); rErr != nil {
				// Reconnect paces retries with its own delay, so
				// re-selecting a closed channel does not spin.
				c.metrics.RecordError("reconnect")
				continue
			}
			barCh, errCh = c.stream.Read(ctx)
		case tb, ok := <-barCh:
			if !ok {
				// Drained; let the error side drive the reconnect.
				barCh = nil
				continue
			}
			if tb == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, tb)
			} else {
				_ = c.proc.Process(ctx, tb)
			}
			c.metrics.RecordLastPrice(tb.Ticker, tb.Bar.Close)
		}
	}
}

// Processor returns the underlying BarProcessor for lifecycle management.
func (c *BarCollector) Processor() *BarProcessor { return c.proc }

// Shutdown stops the pipeline and closes the feed.
func (c *BarCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
