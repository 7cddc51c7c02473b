package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"brigade/internal/contracts"
	"brigade/internal/lifecycle"
	"brigade/internal/service/kitchen/domain"
)

// kitchenStore is an in-memory stand-in for the gorm repositories: tickets
// and the dish ledger live behind one mutex, and reservation plus
// compensation follow the same all-or-nothing rules.
type kitchenStore struct {
	mu      sync.Mutex
	tickets map[int64]*domain.Ticket
	dishes  map[int64]*domain.Dish
}

func newKitchenStore(dishes ...domain.Dish) *kitchenStore {
	s := &kitchenStore{tickets: map[int64]*domain.Ticket{}, dishes: map[int64]*domain.Dish{}}
	for i := range dishes {
		d := dishes[i]
		s.dishes[d.ID] = &d
	}
	return s
}

func (s *kitchenStore) Get(ctx context.Context, orderID int64) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[orderID]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *kitchenStore) List(ctx context.Context) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range s.tickets {
		out = append(out, *t)
	}
	return out, nil
}

func (s *kitchenStore) CreateWithReservation(ctx context.Context, t *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[t.OrderID]; ok {
		return domain.ErrDuplicateTicket
	}

	var dishes []domain.Dish
	var need []contracts.ValidationLine
	for _, line := range t.Lines {
		if d, ok := s.dishes[line.DishID]; ok {
			dishes = append(dishes, *d)
		}
		need = append(need, contracts.ValidationLine{DishID: line.DishID, Quantity: line.Count})
	}
	if insufficient := domain.CheckAvailability(dishes, need); len(insufficient) > 0 {
		return &domain.InsufficiencyError{Lines: insufficient}
	}

	copied := *t
	s.tickets[t.OrderID] = &copied
	for _, line := range t.Lines {
		s.dishes[line.DishID].Balance -= line.Count
	}
	return nil
}

func (s *kitchenStore) Transition(ctx context.Context, orderID int64, fn domain.TransitionFunc) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[orderID]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	next, compensate, err := fn(t.Status)
	if err != nil {
		return nil, err
	}
	if next != t.Status {
		t.Status = next
		if compensate {
			for _, line := range t.Lines {
				s.dishes[line.DishID].Balance += line.Count
			}
		}
	}
	copied := *t
	return &copied, nil
}

func (s *kitchenStore) GetDish(ctx context.Context, id int64) (*domain.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dishes[id]
	if !ok {
		return nil, domain.ErrDishNotFound
	}
	copied := *d
	return &copied, nil
}

func (s *kitchenStore) GetByIDs(ctx context.Context, ids []int64) ([]domain.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Dish
	for _, id := range ids {
		if d, ok := s.dishes[id]; ok {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *kitchenStore) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Dish
	for _, d := range s.dishes {
		out = append(out, *d)
	}
	return out, nil
}

func (s *kitchenStore) balance(t *testing.T, dishID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dishes[dishID]
	require.True(t, ok)
	return d.Balance
}

// dishRepoView adapts kitchenStore to domain.DishRepository without method
// name clashes on Get/List.
type dishRepoView struct{ store *kitchenStore }

func (v dishRepoView) Get(ctx context.Context, id int64) (*domain.Dish, error) {
	return v.store.GetDish(ctx, id)
}

func (v dishRepoView) GetByIDs(ctx context.Context, ids []int64) ([]domain.Dish, error) {
	return v.store.GetByIDs(ctx, ids)
}

func (v dishRepoView) List(ctx context.Context) ([]domain.Dish, error) {
	return v.store.ListDishes(ctx)
}

type recordingProducer struct {
	mu     sync.Mutex
	events []contracts.StatusUpdateEvent
}

func (p *recordingProducer) PublishStatusUpdate(ctx context.Context, ev *contracts.StatusUpdateEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return nil
}

func (p *recordingProducer) published() []contracts.StatusUpdateEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]contracts.StatusUpdateEvent(nil), p.events...)
}

func newTestService(store *kitchenStore) (*KitchenService, *recordingProducer) {
	producer := &recordingProducer{}
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewKitchenService(store, dishRepoView{store: store}, producer, tracer), producer
}

func creationEvent(orderID int64, lines ...contracts.OrderLineItem) *contracts.OrderCreatedEvent {
	return &contracts.OrderCreatedEvent{
		EventID:     "evt-created",
		OrderID:     orderID,
		WaiterID:    7,
		TableNumber: "12",
		Status:      lifecycle.StatusSentToKitchen,
		CreatedAt:   time.Now().UTC(),
		Lines:       lines,
	}
}

func TestHandleOrderCreatedReservesBalances(t *testing.T) {
	store := newKitchenStore(
		domain.Dish{ID: 1, ShortName: "borscht", Balance: 5, Cost: 9.5},
		domain.Dish{ID: 2, ShortName: "pelmeni", Balance: 3, Cost: 12},
	)
	svc, _ := newTestService(store)

	err := svc.HandleOrderCreated(context.Background(), creationEvent(100,
		contracts.OrderLineItem{DishID: 1, Quantity: 2},
		contracts.OrderLineItem{DishID: 2, Quantity: 1},
	))
	require.NoError(t, err)

	assert.Equal(t, 3, store.balance(t, 1))
	assert.Equal(t, 2, store.balance(t, 2))

	ticket, err := svc.GetTicket(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusSentToKitchen, ticket.Status)
	assert.Equal(t, int64(7), ticket.WaiterID)
	assert.Len(t, ticket.Lines, 2)
}

func TestHandleOrderCreatedReplayIsNoOp(t *testing.T) {
	store := newKitchenStore(domain.Dish{ID: 1, ShortName: "borscht", Balance: 5})
	svc, _ := newTestService(store)

	ev := creationEvent(100, contracts.OrderLineItem{DishID: 1, Quantity: 2})
	require.NoError(t, svc.HandleOrderCreated(context.Background(), ev))
	require.NoError(t, svc.HandleOrderCreated(context.Background(), ev))

	assert.Equal(t, 3, store.balance(t, 1), "a replayed creation event must not reserve twice")
}

func TestHandleOrderCreatedConsistencyFault(t *testing.T) {
	store := newKitchenStore(domain.Dish{ID: 1, ShortName: "borscht", Balance: 1})
	svc, producer := newTestService(store)

	err := svc.HandleOrderCreated(context.Background(), creationEvent(100,
		contracts.OrderLineItem{DishID: 1, Quantity: 5},
	))
	require.NoError(t, err, "a consistency fault is reported, not retried")

	_, err = svc.GetTicket(context.Background(), 100)
	assert.ErrorIs(t, err, domain.ErrTicketNotFound, "no mirror on a failed reservation")
	assert.Equal(t, 1, store.balance(t, 1), "no partial reservation")

	events := producer.published()
	require.Len(t, events, 1)
	assert.Equal(t, int64(100), events[0].OrderID)
	assert.Equal(t, lifecycle.StatusCancelledByKitchen, events[0].Status)
}

func TestUpdateOrderStatusAcceptAndFinish(t *testing.T) {
	store := newKitchenStore(domain.Dish{ID: 1, ShortName: "borscht", Balance: 5})
	svc, producer := newTestService(store)
	require.NoError(t, svc.HandleOrderCreated(context.Background(),
		creationEvent(100, contracts.OrderLineItem{DishID: 1, Quantity: 2})))

	ticket, err := svc.UpdateOrderStatus(context.Background(), 100, lifecycle.StatusCooking)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCooking, ticket.Status)

	ticket, err = svc.UpdateOrderStatus(context.Background(), 100, lifecycle.StatusReady)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusReady, ticket.Status)

	events := producer.published()
	require.Len(t, events, 2)
	assert.Equal(t, lifecycle.StatusCooking, events[0].Status)
	assert.Equal(t, lifecycle.StatusReady, events[1].Status)
	assert.Equal(t, 3, store.balance(t, 1), "progress never touches the ledger")
}

func TestFinishRequiresCooking(t *testing.T) {
	store := newKitchenStore(domain.Dish{ID: 1, ShortName: "borscht", Balance: 5})
	svc, producer := newTestService(store)
	require.NoError(t, svc.HandleOrderCreated(context.Background(),
		creationEvent(100, contracts.OrderLineItem{DishID: 1, Quantity: 2})))

	_, err := svc.UpdateOrderStatus(context.Background(), 100, lifecycle.StatusReady)
	var transition *lifecycle.TransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, lifecycle.StatusSentToKitchen, transition.From)
	assert.Empty(t, producer.published(), "a rejected transition publishes nothing")
}

func TestCancelBeforeCookingCompensates(t *testing.T) {
	store := newKitchenStore(domain.Dish{ID: 1, ShortName: "borscht", Balance: 5})
	svc, _ := newTestService(store)
	require.NoError(t, svc.HandleOrderCreated(context.Background(),
		creationEvent(100, contracts.OrderLineItem{DishID: 1, Quantity: 2})))
	require.Equal(t, 3, store.balance(t, 1))

	ticket, err := svc.UpdateOrderStatus(context.Background(), 100, lifecycle.StatusCancelledByKitchen)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCancelledByKitchen, ticket.Status)
	assert.Equal(t, 5, store.balance(t, 1), "cancellation before cooking restores the balance")
}

func TestCancelWhileCookingRedirectsWithoutCompensation(t *testing.T) {
	store := newKitchenStore(domain.Dish{ID: 1, ShortName: "borscht", Balance: 5})
	svc, _ := newTestService(store)
	require.NoError(t, svc.HandleOrderCreated(context.Background(),
		creationEvent(100, contracts.OrderLineItem{DishID: 1, Quantity: 2})))
	_, err := svc.UpdateOrderStatus(context.Background(), 100, lifecycle.StatusCooking)
	require.NoError(t, err)

	ticket, err := svc.UpdateOrderStatus(context.Background(), 100, lifecycle.StatusCancelledByKitchen)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCancelledWhileCookingByKitchen, ticket.Status)
	assert.Equal(t, 3, store.balance(t, 1), "started dishes are lost, not restored")
}

func TestApplyWaiterStatusCancelIsIdempotent(t *testing.T) {
	store := newKitchenStore(
		domain.Dish{ID: 1, ShortName: "borscht", Balance: 5},
		domain.Dish{ID: 2, ShortName: "pelmeni", Balance: 3},
	)
	svc, producer := newTestService(store)
	require.NoError(t, svc.HandleOrderCreated(context.Background(), creationEvent(100,
		contracts.OrderLineItem{DishID: 1, Quantity: 2},
		contracts.OrderLineItem{DishID: 2, Quantity: 1},
	)))
	require.Equal(t, 3, store.balance(t, 1))
	require.Equal(t, 2, store.balance(t, 2))

	ev := &contracts.StatusUpdateEvent{EventID: "evt-cancel", OrderID: 100, Status: lifecycle.StatusCancelledByWaiter}
	require.NoError(t, svc.ApplyWaiterStatus(context.Background(), ev))
	assert.Equal(t, 5, store.balance(t, 1))
	assert.Equal(t, 3, store.balance(t, 2))

	// Redelivery of the same intent: the replay is a no-op, the balance is
	// restored exactly once.
	require.NoError(t, svc.ApplyWaiterStatus(context.Background(), ev))
	assert.Equal(t, 5, store.balance(t, 1))
	assert.Equal(t, 3, store.balance(t, 2))

	ticket, err := svc.GetTicket(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCancelledByWaiter, ticket.Status)
	assert.Empty(t, producer.published(), "waiter intents are never echoed back")
}

func TestValidateOrder(t *testing.T) {
	store := newKitchenStore(
		domain.Dish{ID: 1, ShortName: "borscht", Balance: 5},
		domain.Dish{ID: 2, ShortName: "pelmeni", Balance: 1},
	)
	svc, _ := newTestService(store)

	resp, err := svc.ValidateOrder(context.Background(), &contracts.ValidateOrderRequest{
		OrderID: 100,
		Lines: []contracts.ValidationLine{
			{DishID: 1, Quantity: 2},
			{DishID: 2, Quantity: 3},
			{DishID: 99, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	require.Len(t, resp.Insufficiencies, 2)
	assert.Equal(t, int64(2), resp.Insufficiencies[0].DishID)
	assert.Equal(t, 1, resp.Insufficiencies[0].Available)
	assert.Equal(t, int64(99), resp.Insufficiencies[1].DishID)
	assert.Len(t, resp.Messages, 2)
	assert.Equal(t, 5, store.balance(t, 1), "the pre-check never reserves")

	resp, err = svc.ValidateOrder(context.Background(), &contracts.ValidateOrderRequest{
		OrderID: 101,
		Lines:   []contracts.ValidationLine{{DishID: 1, Quantity: 5}},
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Insufficiencies)
}
