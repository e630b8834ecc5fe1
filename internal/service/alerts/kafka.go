package alerts

import (
	"context"

	"PatternPull/internal/domain/models"
	drepo "PatternPull/internal/domain/repository"
)

// KafkaSink publishes signals to a kafka topic through a SignalPublisher.
type KafkaSink struct {
	pub drepo.SignalPublisher
}

func NewKafkaSink(pub drepo.SignalPublisher) *KafkaSink {
	return &KafkaSink{pub: pub}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, sig *models.Signal) error {
	return s.pub.Publish(ctx, sig)
}
