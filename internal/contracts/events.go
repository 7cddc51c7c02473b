// Package contracts defines the wire payloads exchanged between the waiter
// and kitchen services: the two Kafka event types and the synchronous stock
// pre-check DTOs. Both services import this package and nothing else of each
// other.
package contracts

import (
	"strconv"
	"time"

	"brigade/internal/lifecycle"
)

// Topic names. Both event topics are keyed by order id so per-order ordering
// is preserved; each has a <topic>.dlq sibling for poison messages.
const (
	TopicOrderCreation        = "order-creation"
	TopicWaiterStatusUpdates  = "waiter-order-status-updates"
	TopicKitchenStatusUpdates = "kitchen-order-status-updates"
)

// DLQTopic names the dead-letter sibling of a topic.
func DLQTopic(topic string) string {
	return topic + ".dlq"
}

// Key renders the partition key for an order.
func Key(orderID int64) []byte {
	return []byte(strconv.FormatInt(orderID, 10))
}

// OrderLineItem is one line of a creation event.
type OrderLineItem struct {
	DishID   int64   `json:"dish_id"`
	Quantity int     `json:"quantity"`
	DishName string  `json:"dish_name"`
	Price    float64 `json:"price"`
}

// OrderCreatedEvent is published once per order by the waiter service when
// the order is sent to the kitchen.
type OrderCreatedEvent struct {
	EventID     string           `json:"event_id"`
	OrderID     int64            `json:"order_id"`
	WaiterID    int64            `json:"waiter_id"`
	TableNumber string           `json:"table_number"`
	Status      lifecycle.Status `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	Lines       []OrderLineItem  `json:"lines"`
}

// StatusUpdateEvent flows in both directions: waiter-originated cancellation
// intents carry the requested status, kitchen-originated updates carry the
// resolved status.
type StatusUpdateEvent struct {
	EventID string           `json:"event_id"`
	OrderID int64            `json:"order_id"`
	Status  lifecycle.Status `json:"status"`
}

// ValidationLine is one line of the pre-check request.
type ValidationLine struct {
	DishID   int64 `json:"dish_id"`
	Quantity int   `json:"quantity"`
}

// ValidateOrderRequest is the synchronous pre-check call payload.
type ValidateOrderRequest struct {
	OrderID int64            `json:"order_id"`
	Lines   []ValidationLine `json:"lines"`
}

// InsufficiencyLine reports one dish the kitchen cannot cover.
type InsufficiencyLine struct {
	DishID    int64  `json:"dish_id"`
	DishName  string `json:"dish_name,omitempty"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// ValidateOrderResponse answers the pre-check. The check is read-only and is
// not a reservation: balances may move between this answer and the creation
// event being consumed.
type ValidateOrderResponse struct {
	Valid           bool                `json:"valid"`
	Messages        []string            `json:"messages,omitempty"`
	Insufficiencies []InsufficiencyLine `json:"insufficiencies,omitempty"`
}
