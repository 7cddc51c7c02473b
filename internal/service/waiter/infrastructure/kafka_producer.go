package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"brigade/internal/contracts"
	"brigade/internal/pkg/metrics"
	"brigade/internal/pkg/mq"
)

// EventProducerAdapter publishes the waiter-originated events. Both topics
// are keyed by order id so every event of one order lands on one partition.
type EventProducerAdapter struct {
	creation *kafka.Writer
	status   *kafka.Writer
}

func NewEventProducerAdapter(creation, status *kafka.Writer) *EventProducerAdapter {
	return &EventProducerAdapter{creation: creation, status: status}
}

func (p *EventProducerAdapter) PublishOrderCreated(ctx context.Context, ev *contracts.OrderCreatedEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal creation event")
	}
	if err := mq.ProduceEvent(ctx, p.creation, contracts.Key(ev.OrderID), ev.EventID, payload); err != nil {
		return errors.Wrap(err, "produce creation event")
	}
	metrics.EventsProduced.WithLabelValues(contracts.TopicOrderCreation).Inc()
	return nil
}

func (p *EventProducerAdapter) PublishStatusUpdate(ctx context.Context, ev *contracts.StatusUpdateEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal status update")
	}
	if err := mq.ProduceEvent(ctx, p.status, contracts.Key(ev.OrderID), ev.EventID, payload); err != nil {
		return errors.Wrap(err, "produce status update")
	}
	metrics.EventsProduced.WithLabelValues(contracts.TopicWaiterStatusUpdates).Inc()
	return nil
}
