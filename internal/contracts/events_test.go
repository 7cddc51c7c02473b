package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brigade/internal/lifecycle"
)

func TestKeyIsDecimalOrderID(t *testing.T) {
	assert.Equal(t, []byte("42"), Key(42))
	assert.Equal(t, []byte("-1"), Key(-1))
}

func TestDLQTopic(t *testing.T) {
	assert.Equal(t, "order-creation.dlq", DLQTopic(TopicOrderCreation))
}

func TestStatusUpdateEventWireFormat(t *testing.T) {
	// The field names are the contract between the two services; renaming one
	// breaks consumers silently, so they are pinned here.
	payload, err := json.Marshal(StatusUpdateEvent{
		EventID: "evt-1",
		OrderID: 42,
		Status:  lifecycle.StatusCancelledByWaiter,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event_id":"evt-1","order_id":42,"status":"CANCELLED_BY_WAITER"}`, string(payload))
}

func TestOrderCreatedEventRoundTrip(t *testing.T) {
	// The creation event carries everything the kitchen needs to build its
	// mirror; every field must survive the wire unchanged.
	ev := OrderCreatedEvent{
		EventID:     "evt-7",
		OrderID:     42,
		WaiterID:    7,
		TableNumber: "12",
		Status:      lifecycle.StatusSentToKitchen,
		CreatedAt:   time.Date(2026, 8, 31, 18, 30, 0, 0, time.UTC),
		Lines: []OrderLineItem{
			{DishID: 1, Quantity: 2, DishName: "borscht", Price: 9.5},
			{DishID: 2, Quantity: 1, DishName: "pelmeni", Price: 12},
		},
	}

	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"event_id": "evt-7",
		"order_id": 42,
		"waiter_id": 7,
		"table_number": "12",
		"status": "SENT_TO_KITCHEN",
		"created_at": "2026-08-31T18:30:00Z",
		"lines": [
			{"dish_id": 1, "quantity": 2, "dish_name": "borscht", "price": 9.5},
			{"dish_id": 2, "quantity": 1, "dish_name": "pelmeni", "price": 12}
		]
	}`, string(payload))

	var decoded OrderCreatedEvent
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, ev, decoded)
}

func TestValidateOrderResponseOmitsEmptyReport(t *testing.T) {
	payload, err := json.Marshal(ValidateOrderResponse{Valid: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid":true}`, string(payload))
}
