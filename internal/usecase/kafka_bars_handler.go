package usecase

import (
	"context"
	"encoding/json"
	"time"

	"PatternPull/internal/domain/models"
	drepo "PatternPull/internal/domain/repository"
	pkgkafka "PatternPull/pkg/kafka"
)

// KafkaBarsHandler consumes OHLCV bar messages from a kafka topic and feeds
// them to the bar processor, as an alternative intake to the websocket feed.
type KafkaBarsHandler struct {
	topic   string
	proc    *BarProcessor
	metrics drepo.Metrics
}

func NewKafkaBarsHandler(topic string, proc *BarProcessor, metrics drepo.Metrics) *KafkaBarsHandler {
	return &KafkaBarsHandler{topic: topic, proc: proc, metrics: metrics}
}

func (h *KafkaBarsHandler) Topic() string { return h.topic }

// incoming message schema: {ticker, t, o, h, l, c, v}
func (h *KafkaBarsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Ticker string  `json:"ticker"`
		T      int64   `json:"t"`
		O      float64 `json:"o"`
		H      float64 `json:"h"`
		L      float64 `json:"l"`
		C      float64 `json:"c"`
		V      float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	ts := time.Unix(m.T, 0)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(ts).Seconds())

	tb := &models.TickerBar{
		Ticker: m.Ticker,
		Bar:    models.NewBar(ts, m.O, m.H, m.L, m.C, m.V),
	}
	if err := h.proc.Process(ctx, tb); err != nil {
		h.metrics.RecordError("consumer_process")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaBarsHandler)(nil)
