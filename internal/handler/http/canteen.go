package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campuseats/canteen/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CanteenService interface {
	RegisterCanteen(ctx context.Context, name string) (*models.Canteen, error)
	GetCanteen(ctx context.Context, id uuid.UUID) (*models.Canteen, error)
	SetAcceptingOrders(ctx context.Context, id uuid.UUID, accepting bool) error
}

// CanteenHandler represents HTTP handler for canteen-related requests
type CanteenHandler struct {
	svc CanteenService
}

// NewCanteenHandler creates new CanteenHandler instance
func NewCanteenHandler(svc CanteenService) *CanteenHandler {
	return &CanteenHandler{svc: svc}
}

type canteenResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AcceptingOrders bool   `json:"accepting_orders"`
}

type registerCanteenRequest struct {
	Name string `json:"name"`
}

// RegisterCanteen creates a new canteen
// 201 — столовая зарегистрирована;
// 400 — неверный формат запроса;
// 500 — внутренняя ошибка сервера.
func (ch *CanteenHandler) RegisterCanteen() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerCanteenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		canteen, err := ch.svc.RegisterCanteen(r.Context(), req.Name)
		if err != nil {
			if errors.Is(err, models.ErrValidation) {
				http.Error(w, "canteen name is required", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)

		if err := json.NewEncoder(w).Encode(canteenResponse{
			ID:              canteen.ID.String(),
			Name:            canteen.Name,
			AcceptingOrders: canteen.AcceptingOrders,
		}); err != nil {
			return
		}
	}
}

type setAcceptingRequest struct {
	AcceptingOrders bool `json:"accepting_orders"`
}

// SetAcceptingOrders opens or closes a canteen for new orders
// 200 — состояние обновлено;
// 400 — неверный формат запроса;
// 404 — столовая не найдена;
// 500 — внутренняя ошибка сервера.
func (ch *CanteenHandler) SetAcceptingOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		canteenID, err := uuid.Parse(chi.URLParam(r, "canteenID"))
		if err != nil {
			http.Error(w, "invalid canteen id", http.StatusBadRequest)
			return
		}

		var req setAcceptingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if err := ch.svc.SetAcceptingOrders(r.Context(), canteenID, req.AcceptingOrders); err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				http.Error(w, "canteen not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

// GetCanteen returns a canteen
// 200 — успешная обработка запроса;
// 400 — неверный идентификатор;
// 404 — столовая не найдена;
// 500 — внутренняя ошибка сервера.
func (ch *CanteenHandler) GetCanteen() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		canteenID, err := uuid.Parse(chi.URLParam(r, "canteenID"))
		if err != nil {
			http.Error(w, "invalid canteen id", http.StatusBadRequest)
			return
		}

		canteen, err := ch.svc.GetCanteen(r.Context(), canteenID)
		if err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				http.Error(w, "canteen not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(canteenResponse{
			ID:              canteen.ID.String(),
			Name:            canteen.Name,
			AcceptingOrders: canteen.AcceptingOrders,
		}); err != nil {
			return
		}
	}
}
