// Package lifecycle is the single source of truth for the order state
// machine shared by the waiter and kitchen services. Both services embed the
// same table, so a transition accepted on one side is accepted on the other.
//
// The table is deliberately a plain value lookup, not methods scattered over
// a status type: it can be exercised in isolation and cannot drift between
// the two services.
package lifecycle

import "fmt"

// Status is the wire and storage spelling of an order's lifecycle state.
type Status string

const (
	// Progressive states, in lifecycle order.
	StatusPreparing           Status = "PREPARING"
	StatusSentToKitchen       Status = "SENT_TO_KITCHEN"
	StatusCooking             Status = "COOKING"
	StatusReady               Status = "READY"
	StatusPaidAwaitingServing Status = "PAID_AWAITING_SERVING"
	StatusPaidAndServed       Status = "PAID_AND_SERVED"

	// Terminal cancellation and unsuccessful states.
	StatusCancelledBeforeSend            Status = "CANCELLED_BEFORE_SEND"
	StatusCancelledByWaiter              Status = "CANCELLED_BY_WAITER"
	StatusCancelledByKitchen             Status = "CANCELLED_BY_KITCHEN"
	StatusCancelledWhileCookingByWaiter  Status = "CANCELLED_WHILE_COOKING_BY_WAITER"
	StatusCancelledWhileCookingByKitchen Status = "CANCELLED_WHILE_COOKING_BY_KITCHEN"
	StatusUnsuccessfulStaff              Status = "UNSUCCESSFUL_STAFF"
	StatusUnsuccessfulVisitorUnpaid      Status = "UNSUCCESSFUL_VISITOR_UNPAID"
	StatusUnsuccessfulVisitor            Status = "UNSUCCESSFUL_VISITOR"
)

// All lists every known status.
var All = []Status{
	StatusPreparing,
	StatusSentToKitchen,
	StatusCooking,
	StatusReady,
	StatusPaidAwaitingServing,
	StatusPaidAndServed,
	StatusCancelledBeforeSend,
	StatusCancelledByWaiter,
	StatusCancelledByKitchen,
	StatusCancelledWhileCookingByWaiter,
	StatusCancelledWhileCookingByKitchen,
	StatusUnsuccessfulStaff,
	StatusUnsuccessfulVisitorUnpaid,
	StatusUnsuccessfulVisitor,
}

// transitions is the complete adjacency table. A status absent from the map,
// or mapped to an empty set, is terminal. Payment from
// UNSUCCESSFUL_VISITOR_UNPAID is intentionally NOT an edge here: terminal
// states stay terminal for the predicate, and the waiter service guards that
// one payment path with its own allowed-set.
var transitions = map[Status][]Status{
	StatusPreparing: {
		StatusSentToKitchen,
		StatusCooking,
		StatusCancelledBeforeSend,
	},
	StatusSentToKitchen: {
		StatusCooking,
		StatusCancelledByWaiter,
		StatusCancelledByKitchen,
		StatusUnsuccessfulStaff,
	},
	StatusCooking: {
		StatusReady,
		StatusCancelledWhileCookingByWaiter,
		StatusCancelledWhileCookingByKitchen,
	},
	StatusReady: {
		StatusPaidAwaitingServing,
		StatusUnsuccessfulVisitorUnpaid,
		StatusUnsuccessfulVisitor,
		StatusUnsuccessfulStaff,
	},
	StatusPaidAwaitingServing: {
		StatusPaidAndServed,
	},
}

// stage orders the progressive states; terminal states have no stage.
var stage = map[Status]int{
	StatusPreparing:           0,
	StatusSentToKitchen:       1,
	StatusCooking:             2,
	StatusReady:               3,
	StatusPaidAwaitingServing: 4,
	StatusPaidAndServed:       5,
}

var cancellations = map[Status]bool{
	StatusCancelledBeforeSend:            true,
	StatusCancelledByWaiter:              true,
	StatusCancelledByKitchen:             true,
	StatusCancelledWhileCookingByWaiter:  true,
	StatusCancelledWhileCookingByKitchen: true,
	StatusUnsuccessfulStaff:              true,
	StatusUnsuccessfulVisitorUnpaid:      true,
	StatusUnsuccessfulVisitor:            true,
}

// Known reports whether s is a member of the fixed status set.
func Known(s Status) bool {
	for _, known := range All {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransition is the total, side-effect-free transition predicate both
// services apply identically. Callers that honour the redirect rule must
// Resolve the requested status first.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Resolve applies the redirect rule: once cooking has started, a plain
// cancellation silently becomes its while-cooking variant. Everything else
// passes through untouched.
func Resolve(current, requested Status) Status {
	if current != StatusCooking {
		return requested
	}
	switch requested {
	case StatusCancelledByWaiter:
		return StatusCancelledWhileCookingByWaiter
	case StatusCancelledByKitchen:
		return StatusCancelledWhileCookingByKitchen
	}
	return requested
}

// Stage returns the lifecycle ordering of a progressive status, and false
// for terminal states.
func Stage(s Status) (int, bool) {
	n, ok := stage[s]
	return n, ok
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// IsCancellation reports whether s is one of the cancellation or
// unsuccessful terminal states.
func IsCancellation(s Status) bool {
	return cancellations[s]
}

// TransitionError is the illegal-transition rejection, carrying both sides
// of the refused pair.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition from %q to %q is not allowed", e.From, e.To)
}

// Decision is the outcome of resolving a status-change request against the
// table. Side effects are reported as intents, never performed here.
type Decision struct {
	// Next is the resolved target status.
	Next Status
	// Changed is false when the order is already in the resolved status, in
	// which case the request is an idempotent replay and a no-op.
	Changed bool
	// Compensate is true when the reserved dish quantities must be returned
	// to the balance: only a plain cancellation leaving SENT_TO_KITCHEN,
	// before cooking ever started.
	Compensate bool
}

// Decide resolves a requested transition from current: redirect first, then
// replay detection, then the table check. It returns *TransitionError when
// the resolved pair is not in the table.
func Decide(current, requested Status) (Decision, error) {
	resolved := Resolve(current, requested)
	if resolved == current {
		return Decision{Next: current, Changed: false}, nil
	}
	if !CanTransition(current, resolved) {
		return Decision{}, &TransitionError{From: current, To: resolved}
	}
	compensate := current == StatusSentToKitchen &&
		(resolved == StatusCancelledByWaiter || resolved == StatusCancelledByKitchen)
	return Decision{Next: resolved, Changed: true, Compensate: compensate}, nil
}
