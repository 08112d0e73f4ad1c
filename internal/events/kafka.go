package events

import (
	"context"
	"encoding/json"
	"time"

	"buyerbot_backend/platform/logger"

	"github.com/segmentio/kafka-go"
)

// KafkaBridge mirrors selected domain events onto a Kafka topic so analytics
// and CRM sync consumers outside this process can observe the pipeline.
// It is optional; when Kafka is disabled the in-memory bus runs alone.
type KafkaBridge struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewKafkaBridge creates a bridge writing to the given brokers and topic.
func NewKafkaBridge(brokers []string, topic string, log *logger.Logger) *KafkaBridge {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        false,
	}
	return &KafkaBridge{writer: writer, log: log}
}

// Attach subscribes the bridge to the given event names on the bus.
func (b *KafkaBridge) Attach(bus Bus, eventNames ...string) {
	for _, name := range eventNames {
		bus.Subscribe(name, HandlerFunc(b.forward))
	}
}

func (b *KafkaBridge) forward(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.EventName()),
		Value: payload,
		Time:  event.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.EventName())},
		},
	}

	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		b.log.Error("kafka bridge: write failed", "event", event.EventName(), "error", err)
		return err
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (b *KafkaBridge) Close() error {
	return b.writer.Close()
}
