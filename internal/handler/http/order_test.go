package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campuseats/canteen/internal/handler/http/mocks"
	"github.com/campuseats/canteen/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCanteenID = uuid.MustParse("7f3c3e7e-9b3c-4e0a-9a57-2f1f4f9a3b11")
	testOrderID   = uuid.MustParse("c56a4180-65aa-42ec-a945-5fd21dec0538")
	testUserID    = uuid.MustParse("2b0e7a1c-74d1-4a6f-8f5e-6e1c3a9b2d40")
)

func testOrder() *models.Order {
	userID := testUserID
	return &models.Order{
		ID:          testOrderID,
		CanteenID:   testCanteenID,
		UserID:      &userID,
		ClientRef:   "sub-1",
		TokenNumber: "1",
		TokenDate:   "2025-06-02",
		Items:       []models.OrderItem{{Name: "masala dosa", Quantity: 2, Price: 60}},
		Total:       120,
		Status:      models.OrderStatusPending,
		CreatedAt:   time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC),
	}
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	body := fmt.Sprintf(`{"canteen_id":%q,"items":[{"name":"masala dosa","quantity":2,"price":60}],"total":120,"idempotency_key":"sub-1"}`, testCanteenID)

	tests := []struct {
		name           string
		token          *models.TokenPayload
		body           string
		setup          func(t *testing.T) *mocks.MockOrderService
		wantStatusCode int
	}{
		{
			name:  "valid_request_return_201",
			token: &models.TokenPayload{UserID: testUserID},
			body:  body,
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(testOrder(), true, nil).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:  "replayed_key_return_200_with_existing_order",
			token: &models.TokenPayload{UserID: testUserID},
			body:  body,
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(testOrder(), false, nil).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:  "foreign_idempotency_key_return_409",
			token: &models.TokenPayload{UserID: testUserID},
			body:  body,
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, false, models.ErrConflictData).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name:  "invalid_payload_return_400",
			token: &models.TokenPayload{UserID: testUserID},
			body:  fmt.Sprintf(`{"canteen_id":%q,"items":[],"idempotency_key":"sub-1"}`, testCanteenID),
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, false, models.ErrValidation).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:  "bad_canteen_id_return_400",
			token: &models.TokenPayload{UserID: testUserID},
			body:  `{"canteen_id":"not-a-uuid","idempotency_key":"sub-1"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "unauthorized_request_return_401",
			body: body,
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:  "canteen_closed_return_422",
			token: &models.TokenPayload{UserID: testUserID},
			body:  body,
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, false, models.ErrCanteenUnavailable).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:  "token_allocation_failed_return_503",
			token: &models.TokenPayload{UserID: testUserID},
			body:  body,
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, false, models.ErrTokenAllocation).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusServiceUnavailable,
		},
		{
			name:  "internal_error_return_500",
			token: &models.TokenPayload{UserID: testUserID},
			body:  body,
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, false, models.ErrInternalError).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(tt.body))
			require.NoError(t, err)

			w := httptest.NewRecorder()
			st := tt.setup(t)
			ctx := req.Context()
			if tt.token != nil {
				ctx = context.WithValue(ctx, authPayloadKey, tt.token)
			}

			handler := NewOrderHandler(st)
			h := handler.CreateOrder()
			h(w, req.WithContext(ctx))

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)

			if res.StatusCode == http.StatusCreated || res.StatusCode == http.StatusOK {
				var got orderResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
				assert.Equal(t, testOrderID.String(), got.ID)
				assert.Equal(t, "1", got.TokenNumber)
				assert.Equal(t, models.OrderStatusPending, got.Status)
			}
		})
	}
}

func TestOrderHandler_UpdateOrderStatus(t *testing.T) {
	tests := []struct {
		name           string
		orderID        string
		body           string
		setup          func(t *testing.T) *mocks.MockOrderService
		wantStatusCode int
	}{
		{
			name:    "valid_request_return_200",
			orderID: testOrderID.String(),
			body:    `{"status":"preparing"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				order := testOrder()
				order.Status = models.OrderStatusPreparing

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().UpdateStatus(gomock.Any(), testOrderID, models.OrderStatusPreparing).Return(order, nil).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:    "bad_order_id_return_400",
			orderID: "not-a-uuid",
			body:    `{"status":"preparing"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:    "unknown_order_return_404",
			orderID: testOrderID.String(),
			body:    `{"status":"preparing"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, models.ErrOrderNotFound).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:    "invalid_transition_return_409",
			orderID: testOrderID.String(),
			body:    `{"status":"ready"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, models.ErrInvalidTransition).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name:    "internal_error_return_500",
			orderID: testOrderID.String(),
			body:    `{"status":"preparing"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("boom")).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPatch, "/api/orders/"+tt.orderID+"/status", strings.NewReader(tt.body))
			require.NoError(t, err)

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("orderID", tt.orderID)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)

			w := httptest.NewRecorder()
			st := tt.setup(t)

			handler := NewOrderHandler(st)
			h := handler.UpdateOrderStatus()
			h(w, req.WithContext(ctx))

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
		})
	}
}

func TestOrderHandler_ListUserOrders(t *testing.T) {
	createdAt := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name           string
		token          *models.TokenPayload
		setup          func(t *testing.T) *mocks.MockOrderService
		wantStatusCode int
		wantBody       []orderResponse
	}{
		{
			name:  "valid_request_return_200",
			token: &models.TokenPayload{UserID: testUserID},
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				order := testOrder()
				order.CreatedAt = createdAt

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().ListUserOrders(gomock.Any(), testUserID).Return([]models.Order{*order}, nil).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantBody: []orderResponse{{
				ID:          testOrderID.String(),
				CanteenID:   testCanteenID.String(),
				UserID:      testUserID.String(),
				TokenNumber: "1",
				TokenDate:   "2025-06-02",
				Items:       []models.OrderItem{{Name: "masala dosa", Quantity: 2, Price: 60}},
				Total:       120,
				Status:      models.OrderStatusPending,
				CreatedAt:   createdAt.Format(time.RFC3339),
			}},
		},
		{
			name:  "no_content_request_return_204",
			token: &models.TokenPayload{UserID: testUserID},
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().ListUserOrders(gomock.Any(), gomock.Any()).Return([]models.Order{}, nil).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			name: "unauthorized_request_return_401",
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().ListUserOrders(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:  "internal_error_return_500",
			token: &models.TokenPayload{UserID: testUserID},
			setup: func(t *testing.T) *mocks.MockOrderService {

				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().ListUserOrders(gomock.Any(), gomock.Any()).Return(nil, models.ErrInternalError).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/api/user/orders", nil)
			require.NoError(t, err)

			w := httptest.NewRecorder()
			st := tt.setup(t)
			ctx := req.Context()
			if tt.token != nil {
				ctx = context.WithValue(ctx, authPayloadKey, tt.token)
			}

			handler := NewOrderHandler(st)
			h := handler.ListUserOrders()
			h(w, req.WithContext(ctx))

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
			resBody, err := io.ReadAll(res.Body)
			require.NoError(t, err)

			if tt.wantBody != nil {
				var got []orderResponse
				err = json.Unmarshal(resBody, &got)
				require.NoError(t, err)

				if diff := cmp.Diff(tt.wantBody, got); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}
