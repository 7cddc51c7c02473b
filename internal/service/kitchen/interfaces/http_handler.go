package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"brigade/internal/contracts"
	"brigade/internal/lifecycle"
	"brigade/internal/service/kitchen/application"
	"brigade/internal/service/kitchen/domain"
)

// KitchenHandler exposes the kitchen staff operations and the internal
// pre-check endpoint used by the waiter service.
type KitchenHandler struct {
	service *application.KitchenService
}

func NewKitchenHandler(service *application.KitchenService) *KitchenHandler {
	return &KitchenHandler{service: service}
}

func (h *KitchenHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("PATCH /kitchen/orders/{id}/accept", h.transition(lifecycle.StatusCooking))
	mux.HandleFunc("PATCH /kitchen/orders/{id}/cancel", h.transition(lifecycle.StatusCancelledByKitchen))
	mux.HandleFunc("PATCH /kitchen/orders/{id}/finish", h.transition(lifecycle.StatusReady))
	mux.HandleFunc("GET /kitchen/orders/{id}", h.getOrder)
	mux.HandleFunc("GET /kitchen/orders", h.listOrders)
	mux.HandleFunc("GET /kitchen/dishes/{id}", h.getDish)
	mux.HandleFunc("GET /kitchen/dishes", h.listDishes)
	mux.HandleFunc("POST /internal/orders/validate", h.validateOrder)
}

type ticketDTO struct {
	OrderID     int64            `json:"order_id"`
	WaiterID    int64            `json:"waiter_id"`
	TableNumber string           `json:"table_number"`
	Status      lifecycle.Status `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	Lines       []ticketLineDTO  `json:"lines"`
}

type ticketLineDTO struct {
	DishID int64 `json:"dish_id"`
	Count  int   `json:"count"`
}

type dishDTO struct {
	ID        int64   `json:"id"`
	ShortName string  `json:"short_name"`
	Balance   int     `json:"balance"`
	Cost      float64 `json:"cost"`
}

func (h *KitchenHandler) transition(target lifecycle.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := extractTrace(r)
		orderID, err := pathID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		ticket, err := h.service.UpdateOrderStatus(ctx, orderID, target)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTicketDTO(ticket))
	}
}

func (h *KitchenHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ticket, err := h.service.GetTicket(extractTrace(r), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(ticket))
}

func (h *KitchenHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.service.ListTickets(extractTrace(r))
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]ticketDTO, 0, len(tickets))
	for i := range tickets {
		dtos = append(dtos, *toTicketDTO(&tickets[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *KitchenHandler) getDish(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	dish, err := h.service.GetDish(extractTrace(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dishDTO{ID: dish.ID, ShortName: dish.ShortName, Balance: dish.Balance, Cost: dish.Cost})
}

func (h *KitchenHandler) listDishes(w http.ResponseWriter, r *http.Request) {
	dishes, err := h.service.ListDishes(extractTrace(r))
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]dishDTO, 0, len(dishes))
	for _, d := range dishes {
		dtos = append(dtos, dishDTO{ID: d.ID, ShortName: d.ShortName, Balance: d.Balance, Cost: d.Cost})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *KitchenHandler) validateOrder(w http.ResponseWriter, r *http.Request) {
	var req contracts.ValidateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	resp, err := h.service.ValidateOrder(extractTrace(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func toTicketDTO(t *domain.Ticket) *ticketDTO {
	lines := make([]ticketLineDTO, 0, len(t.Lines))
	for _, l := range t.Lines {
		lines = append(lines, ticketLineDTO{DishID: l.DishID, Count: l.Count})
	}
	return &ticketDTO{
		OrderID:     t.OrderID,
		WaiterID:    t.WaiterID,
		TableNumber: t.TableNumber,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		Lines:       lines,
	}
}

func extractTrace(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, errBadID
	}
	return id, nil
}

var errBadID = errors.New("id must be a positive integer")

type errorDTO struct {
	Message         string                        `json:"message"`
	Insufficiencies []contracts.InsufficiencyLine `json:"insufficiencies,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var transition *lifecycle.TransitionError
	var insufficiency *domain.InsufficiencyError
	switch {
	case errors.Is(err, errBadID):
		writeJSON(w, http.StatusBadRequest, errorDTO{Message: err.Error()})
	case errors.Is(err, domain.ErrTicketNotFound), errors.Is(err, domain.ErrDishNotFound):
		writeJSON(w, http.StatusNotFound, errorDTO{Message: err.Error()})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusConflict, errorDTO{Message: transition.Error()})
	case errors.As(err, &insufficiency):
		writeJSON(w, http.StatusUnprocessableEntity, errorDTO{
			Message:         insufficiency.Error(),
			Insufficiencies: insufficiency.Lines,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errorDTO{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
