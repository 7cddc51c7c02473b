package domain

import (
	"context"

	"brigade/internal/contracts"
	"brigade/internal/lifecycle"
)

// TransitionFunc decides, under the per-order lock, what a mutating request
// does to a ticket: the next status, and whether the reserved quantities go
// back to the dish balance. Returning next == current means an idempotent
// replay; the repository then changes nothing.
type TransitionFunc func(current lifecycle.Status) (next lifecycle.Status, compensate bool, err error)

// TicketRepository owns the kitchen mirror and, transactionally coupled to
// it, the dish-balance ledger. Reservation and compensation never happen
// outside the two methods below, which keeps the exactly-once guarantees in
// one place.
type TicketRepository interface {
	Get(ctx context.Context, orderID int64) (*Ticket, error)
	List(ctx context.Context) ([]Ticket, error)

	// CreateWithReservation inserts the ticket with its lines and decrements
	// every line's dish balance, all in one atomic unit. It returns
	// ErrDuplicateTicket when the mirror already exists and
	// *InsufficiencyError (with no partial application) when any balance
	// would go negative.
	CreateWithReservation(ctx context.Context, t *Ticket) error

	// Transition loads the ticket under a per-order lock, applies fn, and
	// persists the new status; when fn asks for compensation, the line
	// quantities are returned to the dish balances in the same unit.
	Transition(ctx context.Context, orderID int64, fn TransitionFunc) (*Ticket, error)
}

// DishRepository reads the dish catalog and balances.
type DishRepository interface {
	Get(ctx context.Context, id int64) (*Dish, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Dish, error)
	List(ctx context.Context) ([]Dish, error)
}

// StatusProducer publishes kitchen-resolved status updates to the waiter
// service, keyed by order id.
type StatusProducer interface {
	PublishStatusUpdate(ctx context.Context, ev *contracts.StatusUpdateEvent) error
}
