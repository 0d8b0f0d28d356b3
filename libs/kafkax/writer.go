package kafkax

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter returns a hash-balanced writer with no default topic; every
// message names its own topic. It returns nil when no brokers are configured.
func NewWriter(brokers []string) *kafka.Writer {
	if len(brokers) == 0 {
		return nil
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// NewAsyncWriter is like NewWriter but never blocks the caller. Delivery
// failures are reported to logger.
func NewAsyncWriter(brokers []string, logger *slog.Logger) *kafka.Writer {
	w := NewWriter(brokers)
	if w == nil {
		return nil
	}
	w.Async = true
	w.BatchTimeout = 50 * time.Millisecond
	w.Completion = func(messages []kafka.Message, err error) {
		if err != nil {
			logger.Warn("kafka async write failed", "err", err, "messages", len(messages))
		}
	}
	return w
}

// Close flushes w, bounded by ctx. A nil writer is a no-op.
func Close(ctx context.Context, w *kafka.Writer) error {
	if w == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- w.Close() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
