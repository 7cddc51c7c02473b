package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"brigade/internal/contracts"
	"brigade/internal/pkg/mq"
	"brigade/internal/service/kitchen/application"
)

const (
	orderCreationGroupID = "kitchen-order-creation-group"
	waiterStatusGroupID  = "kitchen-waiter-status-group"
)

// NewOrderCreationConsumer consumes creation events from the waiter service
// and drives mirror creation plus reservation.
func NewOrderCreationConsumer(brokers []string, dedup *redis.Client, svc *application.KitchenService) *mq.Consumer {
	reader := mq.NewKafkaReader(brokers, contracts.TopicOrderCreation, orderCreationGroupID)
	dlq := mq.NewKafkaWriter(brokers, contracts.DLQTopic(contracts.TopicOrderCreation))
	return mq.NewConsumer(reader, dlq, dedup, orderCreationGroupID, func(ctx context.Context, msg kafka.Message) error {
		var ev contracts.OrderCreatedEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return errors.Wrap(err, "unmarshal creation event")
		}
		return svc.HandleOrderCreated(extract(ctx, msg), &ev)
	})
}

// NewWaiterStatusConsumer consumes waiter-originated cancellation intents.
func NewWaiterStatusConsumer(brokers []string, dedup *redis.Client, svc *application.KitchenService) *mq.Consumer {
	reader := mq.NewKafkaReader(brokers, contracts.TopicWaiterStatusUpdates, waiterStatusGroupID)
	dlq := mq.NewKafkaWriter(brokers, contracts.DLQTopic(contracts.TopicWaiterStatusUpdates))
	return mq.NewConsumer(reader, dlq, dedup, waiterStatusGroupID, func(ctx context.Context, msg kafka.Message) error {
		var ev contracts.StatusUpdateEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return errors.Wrap(err, "unmarshal status update")
		}
		return svc.ApplyWaiterStatus(extract(ctx, msg), &ev)
	})
}

// extract rebuilds the trace context carried in the message headers.
func extract(ctx context.Context, msg kafka.Message) context.Context {
	carrier := mq.KafkaHeaderCarrier(msg.Headers)
	return otel.GetTextMapPropagator().Extract(ctx, &carrier)
}
