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
	"brigade/internal/service/waiter/application"
)

const kitchenStatusGroupID = "waiter-kitchen-status-group"

// NewKitchenStatusConsumer consumes kitchen-resolved status updates and
// applies them to the order of record.
func NewKitchenStatusConsumer(brokers []string, dedup *redis.Client, svc *application.OrderService) *mq.Consumer {
	reader := mq.NewKafkaReader(brokers, contracts.TopicKitchenStatusUpdates, kitchenStatusGroupID)
	dlq := mq.NewKafkaWriter(brokers, contracts.DLQTopic(contracts.TopicKitchenStatusUpdates))
	return mq.NewConsumer(reader, dlq, dedup, kitchenStatusGroupID, func(ctx context.Context, msg kafka.Message) error {
		var ev contracts.StatusUpdateEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return errors.Wrap(err, "unmarshal status update")
		}
		return svc.ApplyKitchenStatus(extract(ctx, msg), &ev)
	})
}

// extract rebuilds the trace context carried in the message headers.
func extract(ctx context.Context, msg kafka.Message) context.Context {
	carrier := mq.KafkaHeaderCarrier(msg.Headers)
	return otel.GetTextMapPropagator().Extract(ctx, &carrier)
}
