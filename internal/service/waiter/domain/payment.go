package domain

import "time"

// PaymentType is how the visitor paid.
type PaymentType string

const (
	PaymentTypeCash PaymentType = "CASH"
	PaymentTypeCard PaymentType = "CARD"
)

// KnownPaymentType reports whether t is a supported payment type.
func KnownPaymentType(t PaymentType) bool {
	return t == PaymentTypeCash || t == PaymentTypeCard
}

// Payment records the single payment of an order; it is immutable once
// created and keyed by the order id, which is what enforces at most one
// payment per order.
type Payment struct {
	OrderID int64
	Type    PaymentType
	Sum     float64
	PaidAt  time.Time
}
