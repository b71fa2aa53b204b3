package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer publishes order lifecycle events keyed by order id.
type KafkaProducer interface {
	Send(ctx context.Context, key string, value []byte) error
	Close() error
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
	return &Producer{writer: writer}
}

// Send writes synchronously. Hash balancing on the order id keeps every event
// of one order on the same partition, in order.
func (p *Producer) Send(ctx context.Context, key string, value []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("failed to send Kafka message", "topic", p.writer.Topic, "key", key, "error", err)
		return err
	}
	slog.Debug("Kafka message sent", "topic", p.writer.Topic, "key", key)
	return nil
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		slog.Error("failed to close Kafka writer", "error", err)
		return err
	}
	slog.Info("Kafka writer closed")
	return nil
}

// NopProducer drops every message. It stands in when no brokers are configured.
type NopProducer struct{}

func (NopProducer) Send(context.Context, string, []byte) error { return nil }

func (NopProducer) Close() error { return nil }
