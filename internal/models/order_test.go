package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{name: "pending_to_preparing", from: OrderStatusPending, to: OrderStatusPreparing, want: true},
		{name: "pending_to_payment_failed", from: OrderStatusPending, to: OrderStatusPaymentFailed, want: true},
		{name: "preparing_to_ready", from: OrderStatusPreparing, to: OrderStatusReady, want: true},
		{name: "ready_to_completed", from: OrderStatusReady, to: OrderStatusCompleted, want: true},
		{name: "no_state_skipping", from: OrderStatusPending, to: OrderStatusReady, want: false},
		{name: "no_backward_move", from: OrderStatusReady, to: OrderStatusPreparing, want: false},
		{name: "completed_is_terminal", from: OrderStatusCompleted, to: OrderStatusReady, want: false},
		{name: "payment_failed_is_terminal", from: OrderStatusPaymentFailed, to: OrderStatusPreparing, want: false},
		{name: "payment_failed_only_from_pending", from: OrderStatusPreparing, to: OrderStatusPaymentFailed, want: false},
		{name: "same_status_is_not_a_transition", from: OrderStatusPending, to: OrderStatusPending, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusRank(t *testing.T) {
	// every forward transition strictly increases rank except the terminal
	// fan-out from pending
	assert.Less(t, StatusRank(OrderStatusPending), StatusRank(OrderStatusPreparing))
	assert.Less(t, StatusRank(OrderStatusPreparing), StatusRank(OrderStatusReady))
	assert.Less(t, StatusRank(OrderStatusReady), StatusRank(OrderStatusCompleted))
	assert.Less(t, StatusRank(OrderStatusPending), StatusRank(OrderStatusPaymentFailed))

	assert.Equal(t, -1, StatusRank("cancelled"))
	assert.False(t, IsOrderStatus("cancelled"))
	assert.True(t, IsOrderStatus(OrderStatusReady))
}
