package infrastructure

import (
	"time"

	"brigade/internal/lifecycle"
	"brigade/internal/service/kitchen/domain"
)

// KitchenOrderModel is the persistence shape of a kitchen mirror.
type KitchenOrderModel struct {
	OrderID     int64              `gorm:"column:order_no;primaryKey"`
	WaiterID    int64              `gorm:"column:waiter_id"`
	TableNumber string             `gorm:"column:table_no"`
	Status      string             `gorm:"column:status"`
	CreatedAt   time.Time          `gorm:"column:create_dttm"`
	Lines       []OrderToDishModel `gorm:"foreignKey:OrderID;references:OrderID"`
}

func (KitchenOrderModel) TableName() string { return "kitchen_order" }

// OrderToDishModel is one reserved dish line of a kitchen order.
type OrderToDishModel struct {
	OrderID     int64 `gorm:"column:order_no;primaryKey"`
	DishID      int64 `gorm:"column:dish_id;primaryKey"`
	DishesCount int   `gorm:"column:dishes_count"`
}

func (OrderToDishModel) TableName() string { return "order_to_dish" }

// DishModel is one dish-balance ledger row.
type DishModel struct {
	ID        int64   `gorm:"column:dish_id;primaryKey"`
	ShortName string  `gorm:"column:short_name"`
	Balance   int     `gorm:"column:balance"`
	Cost      float64 `gorm:"column:cost"`
}

func (DishModel) TableName() string { return "dish" }

func toDomainTicket(m *KitchenOrderModel) *domain.Ticket {
	lines := make([]domain.TicketLine, 0, len(m.Lines))
	for _, l := range m.Lines {
		lines = append(lines, domain.TicketLine{DishID: l.DishID, Count: l.DishesCount})
	}
	return &domain.Ticket{
		OrderID:     m.OrderID,
		WaiterID:    m.WaiterID,
		TableNumber: m.TableNumber,
		Status:      lifecycle.Status(m.Status),
		CreatedAt:   m.CreatedAt,
		Lines:       lines,
	}
}

func fromDomainTicket(t *domain.Ticket) *KitchenOrderModel {
	lines := make([]OrderToDishModel, 0, len(t.Lines))
	for _, l := range t.Lines {
		lines = append(lines, OrderToDishModel{OrderID: t.OrderID, DishID: l.DishID, DishesCount: l.Count})
	}
	return &KitchenOrderModel{
		OrderID:     t.OrderID,
		WaiterID:    t.WaiterID,
		TableNumber: t.TableNumber,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		Lines:       lines,
	}
}

func toDomainDish(m *DishModel) *domain.Dish {
	return &domain.Dish{ID: m.ID, ShortName: m.ShortName, Balance: m.Balance, Cost: m.Cost}
}
