package alerts

import (
	"context"

	"PatternPull/internal/domain/models"
	"PatternPull/pkg/queue"
)

// QueueSink enqueues signals onto the redis-backed job queue so external
// workers (notifiers, persisters) can pick them up asynchronously.
type QueueSink struct {
	q queue.QueueService
}

// SignalMessageType is the queue message type consumed by signal workers.
const SignalMessageType = "signal.detected"

func NewQueueSink(q queue.QueueService) *QueueSink {
	return &QueueSink{q: q}
}

func (s *QueueSink) Name() string { return "queue" }

func (s *QueueSink) Deliver(ctx context.Context, sig *models.Signal) error {
	return s.q.PublishMessage(ctx, SignalMessageType, sig)
}
