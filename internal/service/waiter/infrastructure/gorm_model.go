package infrastructure

import (
	"time"

	"brigade/internal/lifecycle"
	"brigade/internal/service/waiter/domain"
)

// WaiterOrderModel maps the order of record.
type WaiterOrderModel struct {
	OrderNo    int64                `gorm:"column:order_no;primaryKey;autoIncrement"`
	Status     string               `gorm:"column:status"`
	CreateDttm time.Time            `gorm:"column:create_dttm"`
	WaiterID   int64                `gorm:"column:waiter_id"`
	TableNo    string               `gorm:"column:table_no"`
	Positions  []OrderPositionModel `gorm:"foreignKey:OrderNo;references:OrderNo"`
}

func (WaiterOrderModel) TableName() string { return "waiter_order" }

// OrderPositionModel maps one menu line of an order.
type OrderPositionModel struct {
	PositionID int64         `gorm:"column:position_id;primaryKey;autoIncrement"`
	OrderNo    int64         `gorm:"column:order_no"`
	MenuID     int64         `gorm:"column:menu_id"`
	Quantity   int           `gorm:"column:quantity"`
	MenuItem   MenuItemModel `gorm:"foreignKey:MenuID;references:MenuID"`
}

func (OrderPositionModel) TableName() string { return "order_position" }

// PaymentModel maps the single payment of an order; order_no is the primary
// key, which is what makes a second payment a duplicate-key insert.
type PaymentModel struct {
	OrderNo     int64     `gorm:"column:order_no;primaryKey"`
	PaymentType string    `gorm:"column:payment_type"`
	PaymentSum  float64   `gorm:"column:payment_sum"`
	PaymentDttm time.Time `gorm:"column:payment_dttm"`
}

func (PaymentModel) TableName() string { return "payment" }

type WaiterModel struct {
	WaiterID int64  `gorm:"column:waiter_id;primaryKey"`
	Name     string `gorm:"column:name"`
}

func (WaiterModel) TableName() string { return "waiter_account" }

type MenuItemModel struct {
	MenuID   int64   `gorm:"column:menu_id;primaryKey"`
	DishName string  `gorm:"column:dish_name"`
	Cost     float64 `gorm:"column:cost"`
}

func (MenuItemModel) TableName() string { return "menu" }

func toDomainOrder(m *WaiterOrderModel) *domain.Order {
	order := &domain.Order{
		ID:          m.OrderNo,
		Status:      lifecycle.Status(m.Status),
		CreatedAt:   m.CreateDttm,
		WaiterID:    m.WaiterID,
		TableNumber: m.TableNo,
	}
	for i := range m.Positions {
		p := &m.Positions[i]
		order.Positions = append(order.Positions, domain.OrderPosition{
			ID:         p.PositionID,
			OrderID:    p.OrderNo,
			MenuItemID: p.MenuID,
			Quantity:   p.Quantity,
			MenuItem:   *toDomainMenuItem(&p.MenuItem),
		})
	}
	return order
}

func toDomainMenuItem(m *MenuItemModel) *domain.MenuItem {
	return &domain.MenuItem{ID: m.MenuID, Name: m.DishName, Cost: m.Cost}
}

func toDomainWaiter(m *WaiterModel) *domain.Waiter {
	return &domain.Waiter{ID: m.WaiterID, Name: m.Name}
}

func toDomainPayment(m *PaymentModel) *domain.Payment {
	return &domain.Payment{
		OrderID: m.OrderNo,
		Type:    domain.PaymentType(m.PaymentType),
		Sum:     m.PaymentSum,
		PaidAt:  m.PaymentDttm,
	}
}
