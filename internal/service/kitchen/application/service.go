package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"brigade/internal/contracts"
	"brigade/internal/lifecycle"
	"brigade/internal/pkg/logger"
	"brigade/internal/pkg/metrics"
	"brigade/internal/service/kitchen/domain"
)

// KitchenService orchestrates the fulfillment side of the order lifecycle:
// creation-event consumption with reservation, staff transitions, waiter
// cancellation intents, and the stock pre-check.
type KitchenService struct {
	tickets  domain.TicketRepository
	dishes   domain.DishRepository
	producer domain.StatusProducer
	tracer   trace.Tracer
}

func NewKitchenService(tickets domain.TicketRepository, dishes domain.DishRepository, producer domain.StatusProducer, tracer trace.Tracer) *KitchenService {
	return &KitchenService{tickets: tickets, dishes: dishes, producer: producer, tracer: tracer}
}

// HandleOrderCreated consumes one creation event: the mirror and the
// reservation are committed as a single unit. A replay is a no-op. A failed
// reservation is a consistency fault — the pre-check should have refused the
// send — so it is logged as a defect and answered with a kitchen
// cancellation, never swallowed.
func (s *KitchenService) HandleOrderCreated(ctx context.Context, ev *contracts.OrderCreatedEvent) error {
	ctx, span := s.tracer.Start(ctx, "kitchen.HandleOrderCreated", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", ev.OrderID))

	lines := make([]domain.TicketLine, 0, len(ev.Lines))
	for _, l := range ev.Lines {
		lines = append(lines, domain.TicketLine{DishID: l.DishID, Count: l.Quantity})
	}
	ticket := &domain.Ticket{
		OrderID:     ev.OrderID,
		WaiterID:    ev.WaiterID,
		TableNumber: ev.TableNumber,
		Status:      lifecycle.StatusSentToKitchen,
		CreatedAt:   ev.CreatedAt,
		Lines:       lines,
	}

	err := s.tickets.CreateWithReservation(ctx, ticket)
	switch {
	case err == nil:
		metrics.Reservations.Inc()
		logger.Ctx(ctx).Info().Int64("order_id", ev.OrderID).Int("lines", len(lines)).
			Msg("kitchen order created, dish balances reserved")
		return nil

	case errors.Is(err, domain.ErrDuplicateTicket):
		logger.Ctx(ctx).Info().Int64("order_id", ev.OrderID).Msg("creation event replayed, ignoring")
		return nil

	default:
		var insufficiency *domain.InsufficiencyError
		if errors.As(err, &insufficiency) {
			return s.reportConsistencyFault(ctx, ev.OrderID, insufficiency)
		}
		span.RecordError(err)
		return errors.Wrapf(err, "create kitchen order %d", ev.OrderID)
	}
}

// reportConsistencyFault surfaces a reservation that was expected to succeed
// at commit time. The waiter side must not stay stuck in SENT_TO_KITCHEN, so
// a cancellation status event is emitted even though no mirror was created.
func (s *KitchenService) reportConsistencyFault(ctx context.Context, orderID int64, insufficiency *domain.InsufficiencyError) error {
	metrics.ConsistencyFaults.Inc()
	logger.Ctx(ctx).Error().
		Int64("order_id", orderID).
		Str("insufficiency", insufficiency.Error()).
		Msg("DEFECT: reservation failed after a passing pre-check, cancelling order")

	return s.publishStatus(ctx, orderID, lifecycle.StatusCancelledByKitchen)
}

// UpdateOrderStatus is the HTTP-driven transition path (accept, cancel,
// finish). The resolved status is committed locally first, then published to
// the waiter service.
func (s *KitchenService) UpdateOrderStatus(ctx context.Context, orderID int64, requested lifecycle.Status) (*domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "kitchen.UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.requested_status", string(requested)),
	)

	ticket, err := s.applyTransition(ctx, orderID, requested)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition rejected")
		return nil, err
	}

	if err := s.publishStatus(ctx, orderID, ticket.Status); err != nil {
		// Local state is committed; the update event is the only piece that
		// may be retried by the operator.
		logger.Ctx(ctx).Error().Err(err).Int64("order_id", orderID).
			Msg("status committed but publishing the update failed")
		return nil, err
	}
	return ticket, nil
}

// ApplyWaiterStatus consumes a waiter-originated cancellation intent. It
// shares applyTransition with the HTTP path, so the two are behaviourally
// identical; the one difference is that nothing is echoed back (the waiter
// already applied the same resolution locally).
func (s *KitchenService) ApplyWaiterStatus(ctx context.Context, ev *contracts.StatusUpdateEvent) error {
	ctx, span := s.tracer.Start(ctx, "kitchen.ApplyWaiterStatus", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", ev.OrderID),
		attribute.String("order.requested_status", string(ev.Status)),
	)

	_, err := s.applyTransition(ctx, ev.OrderID, ev.Status)
	return err
}

// applyTransition runs one status change under the per-order lock: redirect,
// replay detection, table check, and the compensation decision all come from
// the shared lifecycle table.
func (s *KitchenService) applyTransition(ctx context.Context, orderID int64, requested lifecycle.Status) (*domain.Ticket, error) {
	var decision lifecycle.Decision
	ticket, err := s.tickets.Transition(ctx, orderID, func(current lifecycle.Status) (lifecycle.Status, bool, error) {
		var err error
		decision, err = lifecycle.Decide(current, requested)
		if err != nil {
			return "", false, err
		}
		if !decision.Changed {
			return current, false, nil
		}
		return decision.Next, decision.Compensate, nil
	})
	if err != nil {
		return nil, err
	}

	if !decision.Changed {
		logger.Ctx(ctx).Info().Int64("order_id", orderID).
			Str("status", string(ticket.Status)).Msg("status replay, nothing to do")
		return ticket, nil
	}
	if decision.Compensate {
		metrics.Compensations.Inc()
		logger.Ctx(ctx).Info().Int64("order_id", orderID).
			Msg("reservation returned to dish balances")
	}
	logger.Ctx(ctx).Info().Int64("order_id", orderID).
		Str("status", string(ticket.Status)).Msg("kitchen order status updated")
	return ticket, nil
}

// ValidateOrder answers the synchronous pre-check. Read-only: no balance is
// touched and nothing is reserved, the gap until the creation event arrives
// is re-validated at reservation time.
func (s *KitchenService) ValidateOrder(ctx context.Context, req *contracts.ValidateOrderRequest) (*contracts.ValidateOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "kitchen.ValidateOrder", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", req.OrderID))

	ids := make([]int64, 0, len(req.Lines))
	for _, l := range req.Lines {
		ids = append(ids, l.DishID)
	}
	dishes, err := s.dishes.GetByIDs(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "load dishes for validation")
	}

	insufficient := domain.CheckAvailability(dishes, req.Lines)
	resp := &contracts.ValidateOrderResponse{Valid: len(insufficient) == 0}
	for _, line := range insufficient {
		resp.Insufficiencies = append(resp.Insufficiencies, line)
		resp.Messages = append(resp.Messages, domain.RenderInsufficiency(line))
	}

	logger.Ctx(ctx).Info().Int64("order_id", req.OrderID).Bool("valid", resp.Valid).
		Msg("order pre-check evaluated")
	return resp, nil
}

func (s *KitchenService) GetTicket(ctx context.Context, orderID int64) (*domain.Ticket, error) {
	return s.tickets.Get(ctx, orderID)
}

func (s *KitchenService) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	return s.tickets.List(ctx)
}

func (s *KitchenService) GetDish(ctx context.Context, id int64) (*domain.Dish, error) {
	return s.dishes.Get(ctx, id)
}

func (s *KitchenService) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	return s.dishes.List(ctx)
}

func (s *KitchenService) publishStatus(ctx context.Context, orderID int64, status lifecycle.Status) error {
	return s.producer.PublishStatusUpdate(ctx, &contracts.StatusUpdateEvent{
		EventID: uuid.New().String(),
		OrderID: orderID,
		Status:  status,
	})
}
