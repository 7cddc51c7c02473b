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

// StatusProducerAdapter publishes kitchen-resolved status updates to the
// waiter service, keyed by order id.
type StatusProducerAdapter struct {
	writer *kafka.Writer
}

func NewStatusProducerAdapter(writer *kafka.Writer) *StatusProducerAdapter {
	return &StatusProducerAdapter{writer: writer}
}

func (p *StatusProducerAdapter) PublishStatusUpdate(ctx context.Context, ev *contracts.StatusUpdateEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal status update")
	}
	if err := mq.ProduceEvent(ctx, p.writer, contracts.Key(ev.OrderID), ev.EventID, payload); err != nil {
		return errors.Wrap(err, "produce status update")
	}
	metrics.EventsProduced.WithLabelValues(contracts.TopicKitchenStatusUpdates).Inc()
	return nil
}
