package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campuseats/canteen/internal/logger"
	"github.com/campuseats/canteen/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxTokenAttempts bounds the allocate-insert retry cycle under token
// contention before surfacing ErrTokenAllocation to the caller.
const maxTokenAttempts = 3

// OrderRepository is interface for interacting with order-related data
type OrderRepository interface {
	// CreateOrder allocates the next daily token and inserts the order in one transaction
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	// GetOrderByID returns order by id
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// GetOrderByClientRef returns the order created under an idempotency key
	GetOrderByClientRef(ctx context.Context, ref string) (*models.Order, error)
	// UpdateOrderStatus atomically moves an order to a new status
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, newStatus string) (*models.Order, bool, error)
	// GetOrdersByUserID gets user orders
	GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	// GetOrdersByCanteenDateRange returns canteen orders within a local-day range
	GetOrdersByCanteenDateRange(ctx context.Context, canteenID uuid.UUID, fromDate, toDate string) ([]models.Order, error)
	// GetPendingOrders returns orders awaiting payment confirmation
	GetPendingOrders(ctx context.Context) ([]models.Order, error)
	// CurrentTokenDate returns the canteen-local day currently being numbered
	CurrentTokenDate() string
}

// CanteenRepository is interface for canteen lookups
type CanteenRepository interface {
	// GetCanteenByID returns canteen by id
	GetCanteenByID(ctx context.Context, id uuid.UUID) (*models.Canteen, error)
}

// EventPublisher pushes order snapshots to the change feed
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// PaymentClient reports the gateway-side payment state of an order
type PaymentClient interface {
	GetOrderPayment(ctx context.Context, orderID uuid.UUID) (string, error)
}

// CreateOrderInput is the validated payload for order placement.
// ClientRef is the caller-supplied idempotency key.
type CreateOrderInput struct {
	CanteenID        uuid.UUID          `validate:"required"`
	UserID           *uuid.UUID
	ClientRef        string             `validate:"required"`
	Items            []models.OrderItem `validate:"required,min=1,dive"`
	Total            float64            `validate:"min=0"`
	EstimatedMinutes int                `validate:"min=0"`
	PaymentMethod    string
}

// OrderService implements OrderService interface
type OrderService struct {
	repo     OrderRepository
	canteens CanteenRepository
	events   EventPublisher
	payments PaymentClient
	validate *validator.Validate
}

// NewOrderService creates new OrderService instance
func NewOrderService(repo OrderRepository, canteens CanteenRepository, events EventPublisher, payments PaymentClient) *OrderService {
	return &OrderService{
		repo:     repo,
		canteens: canteens,
		events:   events,
		payments: payments,
		validate: validator.New(),
	}
}

// CreateOrder places an order and returns it with its assigned pickup
// token. Re-submitting the same ClientRef returns the already persisted
// order with created=false instead of creating a duplicate.
func (os *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, bool, error) {
	if err := os.validate.Struct(input); err != nil {
		return nil, false, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	canteen, err := os.canteens.GetCanteenByID(ctx, input.CanteenID)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return nil, false, models.ErrCanteenUnavailable
		}
		return nil, false, err
	}
	if !canteen.AcceptingOrders {
		return nil, false, models.ErrCanteenUnavailable
	}

	order := &models.Order{
		CanteenID:        input.CanteenID,
		UserID:           input.UserID,
		ClientRef:        input.ClientRef,
		Items:            input.Items,
		Total:            input.Total,
		EstimatedMinutes: input.EstimatedMinutes,
		PaymentMethod:    input.PaymentMethod,
		Status:           models.OrderStatusPending,
	}

	var created *models.Order
	for attempt := 1; ; attempt++ {
		created, err = os.repo.CreateOrder(ctx, order)
		if err == nil {
			break
		}
		if errors.Is(err, models.ErrConflictData) {
			// idempotent retry of an already accepted submission
			existing, err := os.repo.GetOrderByClientRef(ctx, input.ClientRef)
			if err != nil {
				return nil, false, err
			}
			if !sameSubmitter(existing, input) {
				// same key from a different caller is a collision, not a replay
				return nil, false, models.ErrConflictData
			}
			return existing, false, nil
		}
		if errors.Is(err, models.ErrTokenAllocation) && attempt < maxTokenAttempts {
			logger.Log.Debug("retrying token allocation",
				zap.String("canteen_id", input.CanteenID.String()),
				zap.Int("attempt", attempt))
			continue
		}
		return nil, false, err
	}

	// subscribers must observe the order no later than the direct caller
	os.publish(ctx, models.EventInsert, created)

	return created, true, nil
}

// sameSubmitter reports whether an existing order belongs to the caller
// replaying its client ref.
func sameSubmitter(existing *models.Order, input CreateOrderInput) bool {
	if existing.CanteenID != input.CanteenID {
		return false
	}
	if (existing.UserID == nil) != (input.UserID == nil) {
		return false
	}
	if existing.UserID != nil && *existing.UserID != *input.UserID {
		return false
	}
	return true
}

// UpdateStatus moves an order through the pickup lifecycle. Re-applying
// the status the order already holds is a no-op, not an error.
func (os *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (*models.Order, error) {
	if !models.IsOrderStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidTransition, newStatus)
	}

	order, changed, err := os.repo.UpdateOrderStatus(ctx, orderID, newStatus)
	if err != nil {
		return nil, err
	}

	if changed {
		os.publish(ctx, models.EventUpdate, order)
	}

	return order, nil
}

// GetOrder returns a single order by id
func (os *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return os.repo.GetOrderByID(ctx, orderID)
}

// ListUserOrders returns list of user orders
func (os *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return os.repo.GetOrdersByUserID(ctx, userID)
}

// ListCanteenOrders returns canteen orders whose canteen-local day falls
// within [fromDate, toDate]. An empty range defaults to the current
// canteen-local day, the same boundary token numbering uses.
func (os *OrderService) ListCanteenOrders(ctx context.Context, canteenID uuid.UUID, fromDate, toDate string) ([]models.Order, error) {
	if fromDate == "" {
		fromDate = os.repo.CurrentTokenDate()
	}
	if toDate == "" {
		toDate = fromDate
	}
	return os.repo.GetOrdersByCanteenDateRange(ctx, canteenID, fromDate, toDate)
}

// ResolvePayments reads orders from orderCh and settles each against the
// payment gateway: paid orders move to preparing, failed ones to
// payment_failed.
func (os *OrderService) ResolvePayments(ctx context.Context, orderCh <-chan models.Order) {
	for {
		var errTooManyReq models.TooManyRequestsError
		select {
		case <-ctx.Done():
			logger.Log.Debug("payment resolver is done")
			return
		case order, ok := <-orderCh:
			if !ok {
				return
			}

			state, err := os.payments.GetOrderPayment(ctx, order.ID)
			if err != nil {
				if errors.As(err, &errTooManyReq) {
					logger.Log.Debug("payment gateway throttled",
						zap.Duration("retry-after", errTooManyReq.RetryAfter))
					time.Sleep(errTooManyReq.RetryAfter)
					continue
				}
				logger.Log.Error("payment status request", zap.Error(err))
				continue
			}

			var target string
			switch state {
			case models.PaymentStatusPaid:
				target = models.OrderStatusPreparing
			case models.PaymentStatusFailed:
				target = models.OrderStatusPaymentFailed
			default:
				continue
			}

			if _, err := os.UpdateStatus(ctx, order.ID, target); err != nil {
				logger.Log.Error("update order status",
					zap.String("order_id", order.ID.String()),
					zap.Error(err))
			}
		}
	}
}

// GetOrdersForPayment writes pending orders to orderCh for settlement
func (os *OrderService) GetOrdersForPayment(ctx context.Context, orderCh chan<- models.Order) error {
	orders, err := os.repo.GetPendingOrders(ctx)
	if err != nil {
		return err
	}

	for _, order := range orders {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case orderCh <- order:
		}
	}

	return nil
}

func (os *OrderService) publish(ctx context.Context, eventType string, order *models.Order) {
	event := models.OrderEvent{Type: eventType, Order: *order}
	if err := os.events.PublishOrderEvent(ctx, event); err != nil {
		// the order is already committed; the feed is at-least-once, not
		// transactional with the store
		logger.Log.Error("publish order event",
			zap.String("type", eventType),
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
	}
}
