package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"brigade/internal/contracts"
	"brigade/internal/lifecycle"
	"brigade/internal/service/kitchen/domain"
)

// GormTicketRepository implements domain.TicketRepository. Every mutating
// method runs in one transaction with row locks, so concurrent HTTP and
// message-driven updates for the same order are serialized by the database.
type GormTicketRepository struct {
	db *gorm.DB
}

func NewGormTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

func (r *GormTicketRepository) Get(ctx context.Context, orderID int64) (*domain.Ticket, error) {
	var model KitchenOrderModel
	err := r.db.WithContext(ctx).Preload("Lines").Where("order_no = ?", orderID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, errors.Wrap(err, "load kitchen order")
	}
	return toDomainTicket(&model), nil
}

func (r *GormTicketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	var models []KitchenOrderModel
	if err := r.db.WithContext(ctx).Preload("Lines").Order("order_no").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list kitchen orders")
	}
	tickets := make([]domain.Ticket, 0, len(models))
	for i := range models {
		tickets = append(tickets, *toDomainTicket(&models[i]))
	}
	return tickets, nil
}

// CreateWithReservation inserts the mirror and decrements the dish balances
// in one unit. The dish rows are locked first and re-checked: the pre-check
// ran earlier without a lock, so this is the authoritative availability
// decision.
func (r *GormTicketRepository) CreateWithReservation(ctx context.Context, t *domain.Ticket) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing KitchenOrderModel
		err := tx.Select("order_no").Where("order_no = ?", t.OrderID).First(&existing).Error
		if err == nil {
			return domain.ErrDuplicateTicket
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrap(err, "check kitchen order existence")
		}

		ids := make([]int64, 0, len(t.Lines))
		need := make([]contracts.ValidationLine, 0, len(t.Lines))
		for _, line := range t.Lines {
			ids = append(ids, line.DishID)
			need = append(need, contracts.ValidationLine{DishID: line.DishID, Quantity: line.Count})
		}

		var dishModels []DishModel
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("dish_id IN ?", ids).Find(&dishModels).Error
		if err != nil {
			return errors.Wrap(err, "lock dish balances")
		}
		dishes := make([]domain.Dish, 0, len(dishModels))
		for i := range dishModels {
			dishes = append(dishes, *toDomainDish(&dishModels[i]))
		}

		if insufficient := domain.CheckAvailability(dishes, need); len(insufficient) > 0 {
			return &domain.InsufficiencyError{Lines: insufficient}
		}

		model := fromDomainTicket(t)
		if err := tx.Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicateTicket
			}
			return errors.Wrap(err, "insert kitchen order")
		}

		for _, line := range t.Lines {
			err := tx.Model(&DishModel{}).Where("dish_id = ?", line.DishID).
				UpdateColumn("balance", gorm.Expr("balance - ?", line.Count)).Error
			if err != nil {
				return errors.Wrap(err, "decrement dish balance")
			}
		}
		return nil
	})
}

// Transition applies one status change under SELECT ... FOR UPDATE on the
// order row; compensation increments run in the same transaction.
func (r *GormTicketRepository) Transition(ctx context.Context, orderID int64, fn domain.TransitionFunc) (*domain.Ticket, error) {
	var result *domain.Ticket
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model KitchenOrderModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Lines").Where("order_no = ?", orderID).First(&model).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTicketNotFound
			}
			return errors.Wrap(err, "lock kitchen order")
		}

		current := lifecycle.Status(model.Status)
		next, compensate, err := fn(current)
		if err != nil {
			return err
		}
		if next == current {
			result = toDomainTicket(&model)
			return nil
		}

		err = tx.Model(&KitchenOrderModel{}).Where("order_no = ?", orderID).
			UpdateColumn("status", string(next)).Error
		if err != nil {
			return errors.Wrap(err, "update kitchen order status")
		}

		if compensate {
			for _, line := range model.Lines {
				err := tx.Model(&DishModel{}).Where("dish_id = ?", line.DishID).
					UpdateColumn("balance", gorm.Expr("balance + ?", line.DishesCount)).Error
				if err != nil {
					return errors.Wrap(err, "restore dish balance")
				}
			}
		}

		model.Status = string(next)
		result = toDomainTicket(&model)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GormDishRepository implements domain.DishRepository.
type GormDishRepository struct {
	db *gorm.DB
}

func NewGormDishRepository(db *gorm.DB) *GormDishRepository {
	return &GormDishRepository{db: db}
}

func (r *GormDishRepository) Get(ctx context.Context, id int64) (*domain.Dish, error) {
	var model DishModel
	err := r.db.WithContext(ctx).Where("dish_id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDishNotFound
		}
		return nil, errors.Wrap(err, "load dish")
	}
	return toDomainDish(&model), nil
}

func (r *GormDishRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Dish, error) {
	var models []DishModel
	if err := r.db.WithContext(ctx).Where("dish_id IN ?", ids).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "load dishes")
	}
	dishes := make([]domain.Dish, 0, len(models))
	for i := range models {
		dishes = append(dishes, *toDomainDish(&models[i]))
	}
	return dishes, nil
}

func (r *GormDishRepository) List(ctx context.Context) ([]domain.Dish, error) {
	var models []DishModel
	if err := r.db.WithContext(ctx).Order("dish_id").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list dishes")
	}
	dishes := make([]domain.Dish, 0, len(models))
	for i := range models {
		dishes = append(dishes, *toDomainDish(&models[i]))
	}
	return dishes, nil
}
