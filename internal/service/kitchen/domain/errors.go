package domain

import "github.com/pkg/errors"

var (
	ErrTicketNotFound = errors.New("kitchen order not found")
	ErrDishNotFound   = errors.New("dish not found")

	// ErrDuplicateTicket marks a replayed creation event: the mirror already
	// exists, so the event must be treated as consumed.
	ErrDuplicateTicket = errors.New("kitchen order already exists")
)
