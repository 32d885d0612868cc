package models

import (
	"time"

	"github.com/google/uuid"
)

// order status
const (
	OrderStatusPending       = "pending"
	OrderStatusPreparing     = "preparing"
	OrderStatusReady         = "ready"
	OrderStatusCompleted     = "completed"
	OrderStatusPaymentFailed = "payment_failed"
)

// statusRank orders the states along the pickup lifecycle. payment_failed
// is terminal and ranks alongside completed so no later event overwrites it.
var statusRank = map[string]int{
	OrderStatusPending:       0,
	OrderStatusPreparing:     1,
	OrderStatusReady:         2,
	OrderStatusCompleted:     3,
	OrderStatusPaymentFailed: 3,
}

// transitions lists every allowed status move. Anything not present here
// is rejected with ErrInvalidTransition.
var transitions = map[string][]string{
	OrderStatusPending:   {OrderStatusPreparing, OrderStatusPaymentFailed},
	OrderStatusPreparing: {OrderStatusReady},
	OrderStatusReady:     {OrderStatusCompleted},
}

// IsOrderStatus reports whether s is a known order status
func IsOrderStatus(s string) bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
// Backward moves and state skipping are not allowed.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusRank returns the position of a status in the lifecycle.
// Unknown statuses rank below pending.
func StatusRank(s string) int {
	rank, ok := statusRank[s]
	if !ok {
		return -1
	}
	return rank
}

// OrderItem is a single line of an order. Items are validated at the
// service boundary and are immutable once the order is created.
type OrderItem struct {
	Name     string  `json:"name" validate:"required"`
	Quantity uint    `json:"quantity" validate:"required,min=1"`
	Price    float64 `json:"price" validate:"min=0"`
}

// Order is order entity. The json tags describe the change feed
// snapshot encoding.
type Order struct {
	ID               uuid.UUID   `json:"id"`
	CanteenID        uuid.UUID   `json:"canteen_id"`
	UserID           *uuid.UUID  `json:"user_id,omitempty"`
	ClientRef        string      `json:"client_ref,omitempty"`
	TokenNumber      string      `json:"token_number,omitempty"`
	TokenDate        string      `json:"token_date,omitempty"`
	Items            []OrderItem `json:"items,omitempty"`
	Total            float64     `json:"total"`
	EstimatedMinutes int         `json:"estimated_time"`
	PaymentMethod    string      `json:"payment_method,omitempty"`
	Status           string      `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
}
