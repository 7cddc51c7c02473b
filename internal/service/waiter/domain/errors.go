package domain

import (
	"fmt"

	"github.com/pkg/errors"

	"brigade/internal/contracts"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrWaiterNotFound   = errors.New("waiter not found")
	ErrMenuItemNotFound = errors.New("menu position not found")
	ErrPaymentNotFound  = errors.New("payment not found")

	// ErrDuplicatePayment rejects a second payment attempt for an order.
	ErrDuplicatePayment = errors.New("order is already paid")

	ErrEmptyOrder       = errors.New("order has no positions")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrOrderNotServable = errors.New("order cannot be served")
)

// CompositionError rejects a line mutation attempted outside the statuses
// that permit composing.
type CompositionError struct {
	Current string
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("order with status %q cannot be composed", e.Current)
}

// PrecheckError carries the kitchen's structured insufficiency report back
// to the caller of send-to-kitchen.
type PrecheckError struct {
	Messages        []string
	Insufficiencies []contracts.InsufficiencyLine
}

func (e *PrecheckError) Error() string {
	msg := "kitchen rejected the order:"
	for _, m := range e.Messages {
		msg += " " + m + ";"
	}
	return msg
}
