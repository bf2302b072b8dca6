package kafka

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/pablop76/hikashop-fakturownia/internal/events"
)

// Writer is the part of *kafka.Writer the producer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer enqueues order events keyed by order id, so that all updates of
// one order land on the same partition.
type Producer struct {
	w Writer
}

// NewProducer creates a synchronous producer acknowledged by all replicas.
func NewProducer(brokers []string, topic string) *Producer {
	return NewProducerWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	})
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(w Writer) *Producer {
	return &Producer{w: w}
}

// Publish writes an encoded event. The returned id is the message key.
func (p *Producer) Publish(ctx context.Context, body []byte, correlationID string) (string, error) {
	evt, err := events.Decode(body)
	if err != nil {
		return "", errors.Wrap(err, "refusing to publish order event")
	}

	key := strconv.FormatInt(evt.OrderID, 10)
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: HeaderCorrelationID, Value: []byte(correlationID)},
		},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to publish order %s", key)
	}
	return key, nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.w.Close()
}
