package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"brigade/internal/service/waiter/domain"
)

// GormOrderRepository implements domain.OrderRepository. Mutate runs the
// callback under SELECT ... FOR UPDATE on the order row, which serializes
// HTTP-driven and message-driven changes to the same order.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := &WaiterOrderModel{
		Status:     string(order.Status),
		CreateDttm: order.CreatedAt,
		WaiterID:   order.WaiterID,
		TableNo:    order.TableNumber,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(err, "insert order")
	}
	order.ID = model.OrderNo
	return nil
}

func (r *GormOrderRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	var model WaiterOrderModel
	err := r.db.WithContext(ctx).Preload("Positions.MenuItem").
		Where("order_no = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "load order")
	}
	return toDomainOrder(&model), nil
}

func (r *GormOrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	var models []WaiterOrderModel
	err := r.db.WithContext(ctx).Preload("Positions.MenuItem").Order("order_no").Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders := make([]domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, *toDomainOrder(&models[i]))
	}
	return orders, nil
}

// Mutate loads the order under a row lock, applies fn, and persists the
// status plus the full position set. An error from fn rolls everything back,
// including anything fn itself did inside the transaction boundary.
func (r *GormOrderRepository) Mutate(ctx context.Context, id int64, fn func(order *domain.Order) error) (*domain.Order, error) {
	var result *domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model WaiterOrderModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Positions.MenuItem").Where("order_no = ?", id).First(&model).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrOrderNotFound
			}
			return errors.Wrap(err, "lock order")
		}

		order := toDomainOrder(&model)
		if err := fn(order); err != nil {
			return err
		}

		err = tx.Model(&WaiterOrderModel{}).Where("order_no = ?", id).
			UpdateColumn("status", string(order.Status)).Error
		if err != nil {
			return errors.Wrap(err, "update order status")
		}

		if err := tx.Where("order_no = ?", id).Delete(&OrderPositionModel{}).Error; err != nil {
			return errors.Wrap(err, "clear order positions")
		}
		for i := range order.Positions {
			p := &order.Positions[i]
			row := &OrderPositionModel{OrderNo: id, MenuID: p.MenuItemID, Quantity: p.Quantity}
			if err := tx.Create(row).Error; err != nil {
				return errors.Wrap(err, "insert order position")
			}
			p.ID = row.PositionID
			p.OrderID = id
		}

		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GormWaiterRepository implements domain.WaiterRepository.
type GormWaiterRepository struct {
	db *gorm.DB
}

func NewGormWaiterRepository(db *gorm.DB) *GormWaiterRepository {
	return &GormWaiterRepository{db: db}
}

func (r *GormWaiterRepository) Get(ctx context.Context, id int64) (*domain.Waiter, error) {
	var model WaiterModel
	err := r.db.WithContext(ctx).Where("waiter_id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWaiterNotFound
		}
		return nil, errors.Wrap(err, "load waiter")
	}
	return toDomainWaiter(&model), nil
}

func (r *GormWaiterRepository) List(ctx context.Context) ([]domain.Waiter, error) {
	var models []WaiterModel
	if err := r.db.WithContext(ctx).Order("waiter_id").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list waiters")
	}
	waiters := make([]domain.Waiter, 0, len(models))
	for i := range models {
		waiters = append(waiters, *toDomainWaiter(&models[i]))
	}
	return waiters, nil
}

// GormMenuRepository implements domain.MenuRepository.
type GormMenuRepository struct {
	db *gorm.DB
}

func NewGormMenuRepository(db *gorm.DB) *GormMenuRepository {
	return &GormMenuRepository{db: db}
}

func (r *GormMenuRepository) Get(ctx context.Context, id int64) (*domain.MenuItem, error) {
	var model MenuItemModel
	err := r.db.WithContext(ctx).Where("menu_id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMenuItemNotFound
		}
		return nil, errors.Wrap(err, "load menu position")
	}
	return toDomainMenuItem(&model), nil
}

func (r *GormMenuRepository) List(ctx context.Context) ([]domain.MenuItem, error) {
	var models []MenuItemModel
	if err := r.db.WithContext(ctx).Order("menu_id").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list menu")
	}
	items := make([]domain.MenuItem, 0, len(models))
	for i := range models {
		items = append(items, *toDomainMenuItem(&models[i]))
	}
	return items, nil
}

// GormPaymentRepository implements domain.PaymentRepository.
type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	model := &PaymentModel{
		OrderNo:     payment.OrderID,
		PaymentType: string(payment.Type),
		PaymentSum:  payment.Sum,
		PaymentDttm: payment.PaidAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicatePayment
		}
		return errors.Wrap(err, "insert payment")
	}
	return nil
}

func (r *GormPaymentRepository) Get(ctx context.Context, orderID int64) (*domain.Payment, error) {
	var model PaymentModel
	err := r.db.WithContext(ctx).Where("order_no = ?", orderID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, errors.Wrap(err, "load payment")
	}
	return toDomainPayment(&model), nil
}

func (r *GormPaymentRepository) Exists(ctx context.Context, orderID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&PaymentModel{}).
		Where("order_no = ?", orderID).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "count payments")
	}
	return count > 0, nil
}
