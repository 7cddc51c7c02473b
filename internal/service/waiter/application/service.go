package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"brigade/internal/contracts"
	"brigade/internal/lifecycle"
	"brigade/internal/pkg/logger"
	"brigade/internal/service/waiter/domain"
)

// OrderService orchestrates the owner side of the order lifecycle:
// composition, the pre-checked send, payment, serving, cancellation, and the
// application of kitchen-resolved status events.
type OrderService struct {
	orders    domain.OrderRepository
	waiters   domain.WaiterRepository
	menu      domain.MenuRepository
	payments  domain.PaymentRepository
	producer  domain.EventProducer
	validator domain.OrderValidator
	tracer    trace.Tracer
}

func NewOrderService(
	orders domain.OrderRepository,
	waiters domain.WaiterRepository,
	menu domain.MenuRepository,
	payments domain.PaymentRepository,
	producer domain.EventProducer,
	validator domain.OrderValidator,
	tracer trace.Tracer,
) *OrderService {
	return &OrderService{
		orders: orders, waiters: waiters, menu: menu, payments: payments,
		producer: producer, validator: validator, tracer: tracer,
	}
}

// CreateOrder opens a new order in PREPARING for a known waiter.
func (s *OrderService) CreateOrder(ctx context.Context, waiterID int64, tableNumber string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "waiter.CreateOrder")
	defer span.End()

	if _, err := s.waiters.Get(ctx, waiterID); err != nil {
		return nil, err
	}
	order := &domain.Order{
		Status:      lifecycle.StatusPreparing,
		CreatedAt:   time.Now().UTC(),
		WaiterID:    waiterID,
		TableNumber: tableNumber,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}
	logger.Ctx(ctx).Info().Int64("order_id", order.ID).Int64("waiter_id", waiterID).
		Msg("order created")
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.orders.Get(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.orders.List(ctx)
}

func (s *OrderService) GetOrderStatus(ctx context.Context, id int64) (lifecycle.Status, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return order.Status, nil
}

// AdjustPosition merges delta into the order's line for a menu item: a new
// line needs delta > 0, and a merged quantity of zero or below deletes the
// line. Composition is only permitted while the order is PREPARING.
func (s *OrderService) AdjustPosition(ctx context.Context, orderID, menuItemID int64, delta int) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "waiter.AdjustPosition")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID), attribute.Int64("menu.id", menuItemID))

	item, err := s.menu.Get(ctx, menuItemID)
	if err != nil {
		return nil, err
	}

	return s.orders.Mutate(ctx, orderID, func(order *domain.Order) error {
		if order.Status != lifecycle.StatusPreparing {
			return &domain.CompositionError{Current: string(order.Status)}
		}
		existing := order.FindPosition(menuItemID)
		if existing == nil {
			if delta <= 0 {
				return domain.ErrInvalidQuantity
			}
			order.Positions = append(order.Positions, domain.OrderPosition{
				OrderID:    orderID,
				MenuItemID: menuItemID,
				Quantity:   delta,
				MenuItem:   *item,
			})
			return nil
		}
		merged := existing.Quantity + delta
		if merged <= 0 {
			order.RemovePosition(menuItemID)
			return nil
		}
		existing.Quantity = merged
		return nil
	})
}

// ClearPositions drops every line; permitted while PREPARING and also on a
// CANCELLED_BEFORE_SEND order being tidied up.
func (s *OrderService) ClearPositions(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "waiter.ClearPositions")
	defer span.End()

	return s.orders.Mutate(ctx, orderID, func(order *domain.Order) error {
		if order.Status != lifecycle.StatusPreparing && order.Status != lifecycle.StatusCancelledBeforeSend {
			return &domain.CompositionError{Current: string(order.Status)}
		}
		order.Positions = nil
		return nil
	})
}

// SendToKitchen runs the synchronous pre-check and, only when it passes,
// commits SENT_TO_KITCHEN together with the creation event: the event is
// published before the transaction commits, so a failed publish rolls the
// status back and a crash cannot leave a sent order without its event.
func (s *OrderService) SendToKitchen(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "waiter.SendToKitchen")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	order, err := s.orders.Mutate(ctx, orderID, func(order *domain.Order) error {
		if len(order.Positions) == 0 {
			return domain.ErrEmptyOrder
		}
		if order.Status != lifecycle.StatusPreparing {
			return &lifecycle.TransitionError{From: order.Status, To: lifecycle.StatusSentToKitchen}
		}

		if err := s.precheck(ctx, order); err != nil {
			return err
		}

		order.Status = lifecycle.StatusSentToKitchen
		return s.producer.PublishOrderCreated(ctx, creationEvent(order))
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send to kitchen failed")
		return nil, err
	}

	logger.Ctx(ctx).Info().Int64("order_id", orderID).Msg("order sent to kitchen")
	return order, nil
}

// precheck asks the kitchen whether every line is coverable. Any transport
// failure is a rejection.
func (s *OrderService) precheck(ctx context.Context, order *domain.Order) error {
	req := &contracts.ValidateOrderRequest{OrderID: order.ID}
	for _, p := range order.Positions {
		req.Lines = append(req.Lines, contracts.ValidationLine{DishID: p.MenuItemID, Quantity: p.Quantity})
	}
	resp, err := s.validator.Validate(ctx, req)
	if err != nil {
		return errors.Wrap(err, "order pre-check failed")
	}
	if !resp.Valid {
		return &domain.PrecheckError{Messages: resp.Messages, Insufficiencies: resp.Insufficiencies}
	}
	return nil
}

// Pay records the single payment of an order. Allowed from READY and, as
// the one sanctioned exit out of an unsuccessful state, from
// UNSUCCESSFUL_VISITOR_UNPAID; a second attempt is rejected whole.
func (s *OrderService) Pay(ctx context.Context, orderID int64, paymentType domain.PaymentType) (*domain.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "waiter.Pay")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	if !domain.KnownPaymentType(paymentType) {
		return nil, errors.Errorf("unknown payment type %q", paymentType)
	}

	var payment *domain.Payment
	_, err := s.orders.Mutate(ctx, orderID, func(order *domain.Order) error {
		if order.Status != lifecycle.StatusReady && order.Status != lifecycle.StatusUnsuccessfulVisitorUnpaid {
			return &lifecycle.TransitionError{From: order.Status, To: lifecycle.StatusPaidAwaitingServing}
		}
		exists, err := s.payments.Exists(ctx, orderID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicatePayment
		}
		payment = &domain.Payment{
			OrderID: orderID,
			Type:    paymentType,
			Sum:     order.TotalSum(),
			PaidAt:  time.Now().UTC(),
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return err
		}
		order.Status = lifecycle.StatusPaidAwaitingServing
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Int64("order_id", orderID).Float64("sum", payment.Sum).
		Str("type", string(paymentType)).Msg("order paid")
	return payment, nil
}

// Serve hands the order to the table: only a paid order awaiting serving,
// with its payment on record, can be served.
func (s *OrderService) Serve(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "waiter.Serve")
	defer span.End()

	order, err := s.orders.Mutate(ctx, orderID, func(order *domain.Order) error {
		if order.Status != lifecycle.StatusPaidAwaitingServing {
			return domain.ErrOrderNotServable
		}
		paid, err := s.payments.Exists(ctx, orderID)
		if err != nil {
			return err
		}
		if !paid {
			return domain.ErrOrderNotServable
		}
		order.Status = lifecycle.StatusPaidAndServed
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	logger.Ctx(ctx).Info().Int64("order_id", orderID).Msg("order served")
	return order, nil
}

// Cancel resolves a cancellation request through the shared lifecycle table.
// While PREPARING the order is cancelled locally with its lines cleared and
// no event; once it is with the kitchen, the intent is published and the
// same resolved status applied locally so both sides converge.
func (s *OrderService) Cancel(ctx context.Context, orderID int64, requested lifecycle.Status) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "waiter.Cancel")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.requested_status", string(requested)),
	)

	if !lifecycle.IsCancellation(requested) {
		return nil, &lifecycle.TransitionError{From: requested, To: requested}
	}

	order, err := s.orders.Mutate(ctx, orderID, func(order *domain.Order) error {
		decision, err := lifecycle.Decide(order.Status, requested)
		if err != nil {
			return err
		}
		if !decision.Changed {
			return nil
		}

		switch order.Status {
		case lifecycle.StatusPreparing:
			order.Status = decision.Next
			order.Positions = nil
			return nil
		case lifecycle.StatusSentToKitchen, lifecycle.StatusCooking:
			// The intent carries the requested status unredirected; the
			// kitchen applies the same redirect on its side.
			err := s.producer.PublishStatusUpdate(ctx, &contracts.StatusUpdateEvent{
				EventID: uuid.New().String(),
				OrderID: orderID,
				Status:  requested,
			})
			if err != nil {
				return errors.Wrap(err, "publish cancellation intent")
			}
			order.Status = decision.Next
			return nil
		default:
			order.Status = decision.Next
			return nil
		}
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancellation rejected")
		return nil, err
	}
	logger.Ctx(ctx).Info().Int64("order_id", orderID).Str("status", string(order.Status)).
		Msg("order cancelled")
	return order, nil
}

// ApplyKitchenStatus consumes a kitchen-resolved status event. The sender is
// trusted: the status is applied as a direct overwrite, and a replay of the
// same status is a no-op.
func (s *OrderService) ApplyKitchenStatus(ctx context.Context, ev *contracts.StatusUpdateEvent) error {
	ctx, span := s.tracer.Start(ctx, "waiter.ApplyKitchenStatus", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", ev.OrderID),
		attribute.String("order.status", string(ev.Status)),
	)

	if !lifecycle.Known(ev.Status) {
		return errors.Errorf("unknown status %q in kitchen event for order %d", ev.Status, ev.OrderID)
	}

	_, err := s.orders.Mutate(ctx, ev.OrderID, func(order *domain.Order) error {
		if order.Status == ev.Status {
			logger.Ctx(ctx).Info().Int64("order_id", ev.OrderID).
				Str("status", string(ev.Status)).Msg("status replay, nothing to do")
			return nil
		}
		order.Status = ev.Status
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	logger.Ctx(ctx).Info().Int64("order_id", ev.OrderID).Str("status", string(ev.Status)).
		Msg("kitchen status applied")
	return nil
}

func (s *OrderService) GetPayment(ctx context.Context, orderID int64) (*domain.Payment, error) {
	return s.payments.Get(ctx, orderID)
}

func (s *OrderService) GetWaiter(ctx context.Context, id int64) (*domain.Waiter, error) {
	return s.waiters.Get(ctx, id)
}

func (s *OrderService) ListWaiters(ctx context.Context) ([]domain.Waiter, error) {
	return s.waiters.List(ctx)
}

func (s *OrderService) GetMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error) {
	return s.menu.Get(ctx, id)
}

func (s *OrderService) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	return s.menu.List(ctx)
}

func creationEvent(order *domain.Order) *contracts.OrderCreatedEvent {
	lines := make([]contracts.OrderLineItem, 0, len(order.Positions))
	for _, p := range order.Positions {
		lines = append(lines, contracts.OrderLineItem{
			DishID:   p.MenuItemID,
			Quantity: p.Quantity,
			DishName: p.MenuItem.Name,
			Price:    p.MenuItem.Cost,
		})
	}
	return &contracts.OrderCreatedEvent{
		EventID:     uuid.New().String(),
		OrderID:     order.ID,
		WaiterID:    order.WaiterID,
		TableNumber: order.TableNumber,
		Status:      order.Status,
		CreatedAt:   order.CreatedAt,
		Lines:       lines,
	}
}
