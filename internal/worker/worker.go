package worker

import (
	"context"
	"time"

	"github.com/campuseats/canteen/internal/logger"
	"github.com/campuseats/canteen/internal/models"
)

type OrderService interface {
	ResolvePayments(ctx context.Context, orderCh <-chan models.Order)
	GetOrdersForPayment(ctx context.Context, orderCh chan<- models.Order) error
}

// PaymentProcessor is worker settling pending orders against the payment
// gateway
type PaymentProcessor struct {
	svc OrderService
}

// NewPaymentProcessor create new payment processor
func NewPaymentProcessor(svc OrderService) *PaymentProcessor {
	return &PaymentProcessor{svc: svc}
}

// ProcessOrders periodically feeds pending orders to the payment resolver
func (pp *PaymentProcessor) ProcessOrders(ctx context.Context) {
	orders := make(chan models.Order, 10)

	go pp.svc.ResolvePayments(ctx, orders)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Debug("payment processor is done")
			return
		case <-ticker.C:
			if err := pp.svc.GetOrdersForPayment(ctx, orders); err != nil {
				logger.Log.Error("error get orders for payment")
			}
		}
	}
}
