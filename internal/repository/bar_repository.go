package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"PatternPull/internal/domain/models"
	"PatternPull/internal/domain/repository"
	pkgkafka "PatternPull/pkg/kafka"
)

// ClickHouseBarStorage persists live bars so replay has history to load.
type ClickHouseBarStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseBarStorage creates ClickHouse-backed bar storage.
func NewClickHouseBarStorage(db *sql.DB, table string) repository.BarStorage {
	return &ClickHouseBarStorage{db: db, table: table}
}

func (s *ClickHouseBarStorage) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseBarStorage) Store(ctx context.Context, tb *models.TickerBar) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, ticker, open, high, low, close, volume, rth) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	b := tb.Bar
	_, err := s.db.ExecContext(ctx, q,
		b.Timestamp,
		tb.Ticker,
		b.Open,
		b.High,
		b.Low,
		b.Close,
		b.Volume,
		b.RegularSession,
	)
	return err
}

func (s *ClickHouseBarStorage) StoreBatch(ctx context.Context, bars []*models.TickerBar) error {
	if len(bars) == 0 {
		return nil
	}
	// Multi-row VALUES to reduce round-trips; 2000 rows per chunk.
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, tb := range bars[start:end] {
			if tb == nil || tb.Ticker == "" || tb.Bar.Timestamp.IsZero() {
				continue
			}
			b := tb.Bar
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Timestamp, tb.Ticker, b.Open, b.High, b.Low, b.Close, b.Volume, b.RegularSession)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, ticker, open, high, low, close, volume, rth) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseBarStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseBarStorage) Close() error {
	return nil // Managed by pkg
}

// KafkaBarPublisher republishes bars to a kafka topic for downstream
// consumers.
type KafkaBarPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaBarPublisher creates a kafka bar publisher.
func NewKafkaBarPublisher(producer *pkgkafka.Producer, topic string) repository.BarPublisher {
	return &KafkaBarPublisher{producer: producer, topic: topic}
}

func (p *KafkaBarPublisher) PublishBar(ctx context.Context, tb *models.TickerBar) error {
	return p.producer.Publish(ctx, p.topic, []byte(tb.Ticker), barPayload(tb))
}

func (p *KafkaBarPublisher) PublishBars(ctx context.Context, bars []*models.TickerBar) error {
	if len(bars) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(bars))
	for i, tb := range bars {
		msgs[i] = pkgkafka.Message{Key: []byte(tb.Ticker), Value: barPayload(tb)}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaBarPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func barPayload(tb *models.TickerBar) map[string]interface{} {
	b := tb.Bar
	return map[string]interface{}{
		"ticker": tb.Ticker,
		"t":      b.Timestamp.Unix(),
		"o":      b.Open,
		"h":      b.High,
		"l":      b.Low,
		"c":      b.Close,
		"v":      b.Volume,
	}
}

// KafkaSignalPublisher publishes accepted signals to a kafka topic; the
// kafka alert sink wraps it.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates a kafka signal publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) repository.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, s *models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Ticker), map[string]interface{}{
		"ticker":     s.Ticker,
		"pattern":    s.Pattern,
		"t":          s.DetectedAt.Unix(),
		"date":       s.Date,
		"time":       s.TimeOfDay,
		"entry":      s.Entry,
		"stop":       s.Stop,
		"target":     s.Target,
		"confidence": s.Confidence,
		"metadata":   s.Metadata,
	})
}

func (p *KafkaSignalPublisher) Close() error {
	// Producer is shared with the bar publisher; its owner closes it.
	return nil
}
