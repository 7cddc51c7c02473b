package domain

import (
	"time"

	"brigade/internal/lifecycle"
)

// Order is the order of record, owned exclusively by the waiter service.
type Order struct {
	ID          int64
	Status      lifecycle.Status
	CreatedAt   time.Time
	WaiterID    int64
	TableNumber string
	Positions   []OrderPosition
}

// OrderPosition is one menu line of an order. Quantity is always > 0: a
// line adjusted to zero or below is deleted, never stored.
type OrderPosition struct {
	ID         int64
	OrderID    int64
	MenuItemID int64
	Quantity   int
	MenuItem   MenuItem
}

// MenuItem is one sellable dish of the menu. Its id doubles as the kitchen's
// dish id.
type MenuItem struct {
	ID   int64
	Name string
	Cost float64
}

// Waiter is the staff member owning an order.
type Waiter struct {
	ID   int64
	Name string
}

// TotalSum is the payment amount for the order.
func (o *Order) TotalSum() float64 {
	var sum float64
	for _, p := range o.Positions {
		sum += p.MenuItem.Cost * float64(p.Quantity)
	}
	return sum
}

// FindPosition returns the position for a menu item, or nil.
func (o *Order) FindPosition(menuItemID int64) *OrderPosition {
	for i := range o.Positions {
		if o.Positions[i].MenuItemID == menuItemID {
			return &o.Positions[i]
		}
	}
	return nil
}

// RemovePosition drops the position for a menu item.
func (o *Order) RemovePosition(menuItemID int64) {
	for i := range o.Positions {
		if o.Positions[i].MenuItemID == menuItemID {
			o.Positions = append(o.Positions[:i], o.Positions[i+1:]...)
			return
		}
	}
}
