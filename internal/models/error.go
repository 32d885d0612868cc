package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation         = errors.New("invalid order payload")
	ErrCanteenUnavailable = errors.New("canteen is not accepting orders")
	ErrTokenAllocation    = errors.New("token allocation failed")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrOrderNotFound      = errors.New("order not found")
	ErrConflictData       = errors.New("data conflicts with existing data")
	ErrDataNotFound       = errors.New("data not found")
	ErrInternalError      = errors.New("internal error")
)

// TooManyRequestsError is returned by the payment client when the gateway
// throttles us. RetryAfter carries the delay requested by the gateway.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func NewTooManyRequestsError(retryAfter time.Duration) TooManyRequestsError {
	return TooManyRequestsError{RetryAfter: retryAfter}
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}
