// Package kafka delivers order-updated events over a Kafka topic: a consumer
// feeding the processor and a producer the webhook receiver can enqueue to.
package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/config"
	"github.com/pablop76/hikashop-fakturownia/internal/events"
	"github.com/pablop76/hikashop-fakturownia/internal/processor"
)

// HeaderCorrelationID carries the correlation id of an enqueued event.
const HeaderCorrelationID = "correlation-id"

const defaultBackoff = 300 * time.Millisecond

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderProcessor runs the invoicing pipeline for one trigger.
type OrderProcessor interface {
	Process(ctx context.Context, t processor.Trigger) processor.Outcome
}

// NewReader creates a consumer group reader for the order-updated topic.
// Offsets are committed explicitly after each message.
func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topic:           cfg.Topic,
		MinBytes:        1,
		MaxBytes:        10e6,
		CommitInterval:  0,
		StartOffset:     kafka.FirstOffset,
		ReadLagInterval: -1,
	})
}

// Consumer reads order events one at a time and hands them to the processor.
type Consumer struct {
	reader  Reader
	proc    OrderProcessor
	logger  *zap.Logger
	backoff time.Duration
}

// NewConsumer creates a Consumer.
func NewConsumer(reader Reader, proc OrderProcessor, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: reader, proc: proc, logger: logger, backoff: defaultBackoff}
}

// Run consumes until ctx is cancelled and closes the reader on return.
// Malformed messages are committed and skipped. Processing failures are
// reported by the processor itself, so the offset is committed either way.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("kafka fetch error", zap.Error(err))
			if !c.sleep(ctx) {
				return nil
			}
			continue
		}

		c.handle(ctx, m)

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("kafka commit failed",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	log := c.logger.With(zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset))

	evt, err := events.DecodeWithCorrelation(m.Value, headerValue(m.Headers, HeaderCorrelationID))
	if err != nil {
		if errors.Is(err, events.ErrMissingOrderID) {
			log.Debug("event without order id, skipping")
		} else {
			log.Warn("malformed order event, skipping", zap.Error(err))
		}
		return
	}

	out := c.proc.Process(ctx, evt.Trigger())
	log.Info("order event processed",
		zap.Int64("order_id", out.OrderID),
		zap.String("state", string(out.State)),
		zap.String("correlation_id", evt.CorrelationID))
}

func (c *Consumer) sleep(ctx context.Context) bool {
	t := time.NewTimer(c.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
