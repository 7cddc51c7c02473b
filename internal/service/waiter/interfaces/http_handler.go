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
	"brigade/internal/service/waiter/application"
	"brigade/internal/service/waiter/domain"
)

// WaiterHandler exposes the order-owner operations: composition, the
// pre-checked send, payment, serving, and cancellation.
type WaiterHandler struct {
	service *application.OrderService
}

func NewWaiterHandler(service *application.OrderService) *WaiterHandler {
	return &WaiterHandler{service: service}
}

func (h *WaiterHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("GET /orders/{id}/status", h.getOrderStatus)
	mux.HandleFunc("PATCH /orders/{id}/items", h.adjustPosition)
	mux.HandleFunc("DELETE /orders/{id}/items", h.clearPositions)
	mux.HandleFunc("POST /orders/{id}/send", h.sendToKitchen)
	mux.HandleFunc("POST /orders/{id}/payment", h.pay)
	mux.HandleFunc("GET /orders/{id}/payment", h.getPayment)
	mux.HandleFunc("POST /orders/{id}/serve", h.serve)
	mux.HandleFunc("POST /orders/{id}/cancel", h.cancel)
	mux.HandleFunc("GET /waiters/{id}", h.getWaiter)
	mux.HandleFunc("GET /waiters", h.listWaiters)
	mux.HandleFunc("GET /menu/{id}", h.getMenuItem)
	mux.HandleFunc("GET /menu", h.listMenu)
}

type createOrderRequest struct {
	WaiterID    int64  `json:"waiter_id"`
	TableNumber string `json:"table_number"`
}

type adjustPositionRequest struct {
	MenuItemID int64 `json:"menu_item_id"`
	Delta      int   `json:"delta"`
}

type payRequest struct {
	Type domain.PaymentType `json:"type"`
}

type cancelRequest struct {
	Status lifecycle.Status `json:"status"`
}

type orderDTO struct {
	ID          int64            `json:"id"`
	Status      lifecycle.Status `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	WaiterID    int64            `json:"waiter_id"`
	TableNumber string           `json:"table_number"`
	TotalSum    float64          `json:"total_sum"`
	Positions   []positionDTO    `json:"positions"`
}

type positionDTO struct {
	MenuItemID int64   `json:"menu_item_id"`
	Name       string  `json:"name"`
	Cost       float64 `json:"cost"`
	Quantity   int     `json:"quantity"`
}

type paymentDTO struct {
	OrderID int64              `json:"order_id"`
	Type    domain.PaymentType `json:"type"`
	Sum     float64            `json:"sum"`
	PaidAt  time.Time          `json:"paid_at"`
}

type statusDTO struct {
	OrderID int64            `json:"order_id"`
	Status  lifecycle.Status `json:"status"`
}

func (h *WaiterHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	order, err := h.service.CreateOrder(extractTrace(r), req.WaiterID, req.TableNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(order))
}

func (h *WaiterHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	order, err := h.service.GetOrder(extractTrace(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *WaiterHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(extractTrace(r))
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]orderDTO, 0, len(orders))
	for i := range orders {
		dtos = append(dtos, *toOrderDTO(&orders[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *WaiterHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := h.service.GetOrderStatus(extractTrace(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusDTO{OrderID: id, Status: status})
}

func (h *WaiterHandler) adjustPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req adjustPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	order, err := h.service.AdjustPosition(extractTrace(r), id, req.MenuItemID, req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *WaiterHandler) clearPositions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	order, err := h.service.ClearPositions(extractTrace(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *WaiterHandler) sendToKitchen(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	order, err := h.service.SendToKitchen(extractTrace(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *WaiterHandler) pay(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	payment, err := h.service.Pay(extractTrace(r), id, req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(payment))
}

func (h *WaiterHandler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	payment, err := h.service.GetPayment(extractTrace(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(payment))
}

func (h *WaiterHandler) serve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	order, err := h.service.Serve(extractTrace(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *WaiterHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req := cancelRequest{Status: lifecycle.StatusCancelledByWaiter}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	order, err := h.service.Cancel(extractTrace(r), id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *WaiterHandler) getWaiter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	waiter, err := h.service.GetWaiter(extractTrace(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, waiter)
}

func (h *WaiterHandler) listWaiters(w http.ResponseWriter, r *http.Request) {
	waiters, err := h.service.ListWaiters(extractTrace(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, waiters)
}

func (h *WaiterHandler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	item, err := h.service.GetMenuItem(extractTrace(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *WaiterHandler) listMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListMenu(extractTrace(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func toOrderDTO(o *domain.Order) *orderDTO {
	positions := make([]positionDTO, 0, len(o.Positions))
	for _, p := range o.Positions {
		positions = append(positions, positionDTO{
			MenuItemID: p.MenuItemID,
			Name:       p.MenuItem.Name,
			Cost:       p.MenuItem.Cost,
			Quantity:   p.Quantity,
		})
	}
	return &orderDTO{
		ID:          o.ID,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		WaiterID:    o.WaiterID,
		TableNumber: o.TableNumber,
		TotalSum:    o.TotalSum(),
		Positions:   positions,
	}
}

func toPaymentDTO(p *domain.Payment) *paymentDTO {
	return &paymentDTO{OrderID: p.OrderID, Type: p.Type, Sum: p.Sum, PaidAt: p.PaidAt}
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
	var composition *domain.CompositionError
	var precheck *domain.PrecheckError
	switch {
	case errors.Is(err, errBadID), errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrEmptyOrder):
		writeJSON(w, http.StatusBadRequest, errorDTO{Message: err.Error()})
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrWaiterNotFound),
		errors.Is(err, domain.ErrMenuItemNotFound), errors.Is(err, domain.ErrPaymentNotFound):
		writeJSON(w, http.StatusNotFound, errorDTO{Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicatePayment), errors.Is(err, domain.ErrOrderNotServable):
		writeJSON(w, http.StatusConflict, errorDTO{Message: err.Error()})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusConflict, errorDTO{Message: transition.Error()})
	case errors.As(err, &composition):
		writeJSON(w, http.StatusConflict, errorDTO{Message: composition.Error()})
	case errors.As(err, &precheck):
		writeJSON(w, http.StatusUnprocessableEntity, errorDTO{
			Message:         precheck.Error(),
			Insufficiencies: precheck.Insufficiencies,
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
