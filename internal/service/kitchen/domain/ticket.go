package domain

import (
	"time"

	"brigade/internal/lifecycle"
)

// Ticket is the kitchen-side mirror of an order. Its id equals the
// originating order id, and it exists iff the creation event for that order
// was consumed exactly once.
type Ticket struct {
	OrderID     int64
	WaiterID    int64
	TableNumber string
	Status      lifecycle.Status
	CreatedAt   time.Time
	Lines       []TicketLine
}

// TicketLine records the reserved quantity of one dish.
type TicketLine struct {
	DishID int64
	Count  int
}
