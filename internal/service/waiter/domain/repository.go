package domain

import (
	"context"

	"brigade/internal/contracts"
)

// OrderRepository owns the order of record. Mutate is the only write path
// for an existing order: it loads the order under a per-order lock, applies
// fn, and persists the result, so HTTP-driven and message-driven changes to
// the same order are serialized.
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	Mutate(ctx context.Context, id int64, fn func(order *Order) error) (*Order, error)
}

type WaiterRepository interface {
	Get(ctx context.Context, id int64) (*Waiter, error)
	List(ctx context.Context) ([]Waiter, error)
}

type MenuRepository interface {
	Get(ctx context.Context, id int64) (*MenuItem, error)
	List(ctx context.Context) ([]MenuItem, error)
}

type PaymentRepository interface {
	// Create persists the single payment of an order; a second insert for
	// the same order id fails with ErrDuplicatePayment.
	Create(ctx context.Context, payment *Payment) error
	Get(ctx context.Context, orderID int64) (*Payment, error)
	Exists(ctx context.Context, orderID int64) (bool, error)
}

// EventProducer publishes the waiter-originated events, keyed by order id.
type EventProducer interface {
	PublishOrderCreated(ctx context.Context, ev *contracts.OrderCreatedEvent) error
	PublishStatusUpdate(ctx context.Context, ev *contracts.StatusUpdateEvent) error
}

// OrderValidator is the synchronous pre-check against the kitchen. A
// transport failure is an error and aborts the send; it is never treated as
// implicit success.
type OrderValidator interface {
	Validate(ctx context.Context, req *contracts.ValidateOrderRequest) (*contracts.ValidateOrderResponse, error)
}
