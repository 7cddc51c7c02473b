package mq

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// EventIDHeader carries the unique event id on every produced message; the
// consumer uses it as the replay-dedup key.
const EventIDHeader = "event_id"

// NewKafkaWriter builds a writer for one topic. The hash balancer keeps all
// messages with the same key (order id) on the same partition, which is what
// preserves per-order ordering.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// NewKafkaReader builds a consumer-group reader for one topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // explicit commits only
	})
}

// ProduceEvent publishes one keyed message, injecting the current trace
// context and the event id into the message headers.
func ProduceEvent(ctx context.Context, writer *kafka.Writer, key []byte, eventID string, value []byte) error {
	msg := kafka.Message{
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: EventIDHeader, Value: []byte(eventID)},
		},
	}
	carrier := KafkaHeaderCarrier(msg.Headers)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)
	msg.Headers = carrier
	return writer.WriteMessages(ctx, msg)
}

// EventID extracts the event id header from a consumed message, or "" when
// the producer did not set one.
func EventID(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == EventIDHeader {
			return string(h.Value)
		}
	}
	return ""
}
