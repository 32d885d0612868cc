package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/campuseats/canteen/internal/models"
	"github.com/campuseats/canteen/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type OrderService interface {
	CreateOrder(ctx context.Context, input service.CreateOrderInput) (*models.Order, bool, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListCanteenOrders(ctx context.Context, canteenID uuid.UUID, fromDate, toDate string) ([]models.Order, error)
}

// OrderHandler represents HTTP handler for order-related requests
type OrderHandler struct {
	svc OrderService
}

// NewOrderHandler creates new OrderHandler instance
func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type createOrderRequest struct {
	CanteenID      string             `json:"canteen_id"`
	Items          []models.OrderItem `json:"items"`
	Total          float64            `json:"total"`
	EstimatedTime  int                `json:"estimated_time"`
	PaymentMethod  string             `json:"payment_method"`
	IdempotencyKey string             `json:"idempotency_key"`
}

type orderResponse struct {
	ID            string             `json:"id"`
	CanteenID     string             `json:"canteen_id"`
	UserID        string             `json:"user_id,omitempty"`
	TokenNumber   string             `json:"token_number"`
	TokenDate     string             `json:"token_date"`
	Items         []models.OrderItem `json:"items"`
	Total         float64            `json:"total"`
	EstimatedTime int                `json:"estimated_time"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	Status        string             `json:"status"`
	CreatedAt     string             `json:"created_at"`
	CompletedAt   string             `json:"completed_at,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:            order.ID.String(),
		CanteenID:     order.CanteenID.String(),
		TokenNumber:   order.TokenNumber,
		TokenDate:     order.TokenDate,
		Items:         order.Items,
		Total:         order.Total,
		EstimatedTime: order.EstimatedMinutes,
		PaymentMethod: order.PaymentMethod,
		Status:        order.Status,
		CreatedAt:     order.CreatedAt.Format(time.RFC3339),
	}
	if order.UserID != nil {
		resp.UserID = order.UserID.String()
	}
	if order.CompletedAt != nil {
		resp.CompletedAt = order.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// CreateOrder places a new order
// 201 — заказ создан, токен выдачи назначен;
// 200 — повтор с тем же ключом, возвращён существующий заказ;
// 400 — неверный формат запроса;
// 401 — пользователь не аутентифицирован;
// 409 — ключ идемпотентности занят другим клиентом;
// 422 — столовая не принимает заказы;
// 503 — не удалось выдать токен, можно повторить с тем же ключом;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		canteenID, err := uuid.Parse(req.CanteenID)
		if err != nil {
			http.Error(w, "invalid canteen id", http.StatusBadRequest)
			return
		}

		input := service.CreateOrderInput{
			CanteenID:        canteenID,
			UserID:           &payload.UserID,
			ClientRef:        req.IdempotencyKey,
			Items:            req.Items,
			Total:            req.Total,
			EstimatedMinutes: req.EstimatedTime,
			PaymentMethod:    req.PaymentMethod,
		}

		order, created, err := oh.svc.CreateOrder(r.Context(), input)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrValidation):
				http.Error(w, "invalid order payload", http.StatusBadRequest)
			case errors.Is(err, models.ErrConflictData):
				http.Error(w, "idempotency key already in use", http.StatusConflict)
			case errors.Is(err, models.ErrCanteenUnavailable):
				http.Error(w, "canteen unavailable", http.StatusUnprocessableEntity)
			case errors.Is(err, models.ErrTokenAllocation):
				http.Error(w, "token allocation failed", http.StatusServiceUnavailable)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		statusCode := http.StatusCreated
		if !created {
			// replayed submission, nothing new was persisted
			statusCode = http.StatusOK
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(newOrderResponse(order)); err != nil {
			return
		}
	}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus moves an order through the pickup lifecycle
// 200 — статус обновлён (или уже был таким);
// 400 — неверный формат запроса;
// 404 — заказ не найден;
// 409 — недопустимый переход статуса;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) UpdateOrderStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		var req updateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		order, err := oh.svc.UpdateStatus(r.Context(), orderID, req.Status)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrOrderNotFound):
				http.Error(w, "order not found", http.StatusNotFound)
			case errors.Is(err, models.ErrInvalidTransition):
				http.Error(w, "invalid status transition", http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(newOrderResponse(order)); err != nil {
			return
		}
	}
}

// GetOrder returns a single order
// 200 — успешная обработка запроса;
// 400 — неверный идентификатор заказа;
// 404 — заказ не найден;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		order, err := oh.svc.GetOrder(r.Context(), orderID)
		if err != nil {
			if errors.Is(err, models.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(newOrderResponse(order)); err != nil {
			return
		}
	}
}

// ListUserOrders returns the authenticated user's orders, newest first
// 200 — успешная обработка запроса;
// 204 — нет данных для ответа;
// 401 — пользователь не аутентифицирован;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) ListUserOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := oh.svc.ListUserOrders(r.Context(), payload.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeOrderList(w, orders)
	}
}

// ListCanteenOrders returns a canteen's orders for a local-day range.
// Defaults to the current day when no range is given.
// 200 — успешная обработка запроса;
// 204 — нет данных для ответа;
// 400 — неверный формат запроса;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) ListCanteenOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		canteenID, err := uuid.Parse(chi.URLParam(r, "canteenID"))
		if err != nil {
			http.Error(w, "invalid canteen id", http.StatusBadRequest)
			return
		}

		// empty range means the current canteen-local day
		fromDate := r.URL.Query().Get("from")
		toDate := r.URL.Query().Get("to")
		for _, d := range []string{fromDate, toDate} {
			if d == "" {
				continue
			}
			if _, err := time.Parse("2006-01-02", d); err != nil {
				http.Error(w, "invalid date", http.StatusBadRequest)
				return
			}
		}

		orders, err := oh.svc.ListCanteenOrders(r.Context(), canteenID, fromDate, toDate)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeOrderList(w, orders)
	}
}

func writeOrderList(w http.ResponseWriter, orders []models.Order) {
	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		return
	}
}
